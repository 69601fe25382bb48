package pipeline

import (
	"context"
	"fmt"
	"net"
	"time"

	"pixelbridge/internal/artnet"
	"pixelbridge/internal/config"
	"pixelbridge/internal/e131"
	"pixelbridge/internal/ingest"
	"pixelbridge/internal/logger"
)

// Start opens the configured listeners. Received datagrams are queued for Run.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = ctx
	return e.startListeners(ctx)
}

// Stop closes every listener.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopListeners()
	e.ctx = nil
}

// Run dispatches datagrams, control events and output ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	period := e.tickPeriod()
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-e.datagrams:
			e.HandleDatagram(d)
		case ev := <-e.events:
			e.HandleEvent(ev)
		case now := <-t.C:
			e.Tick(now)
			if p := e.tickPeriod(); p != period {
				period = p
				t.Reset(period)
			}
		}
	}
}

func (e *Engine) startListeners(ctx context.Context) error {
	confs, err := listenerConfs(e.log, &e.cfg)
	if err != nil {
		return err
	}
	for _, c := range confs {
		l := ingest.NewListener(e.log, c)
		if err := l.Start(ctx, e.datagrams); err != nil {
			e.stopListeners()
			return err
		}
		e.listeners = append(e.listeners, l)
	}
	return nil
}

func (e *Engine) stopListeners() {
	for _, l := range e.listeners {
		l.Stop()
	}
	e.listeners = nil
}

// listenerConfs derives the sockets a configuration needs.
func listenerConfs(log logger.Logger, cfg *config.Config) ([]ingest.ListenerConf, error) {
	var confs []ingest.ListenerConf

	switch cfg.Input.Protocol {
	case config.ProtocolE131:
		c := ingest.ListenerConf{
			Kind:      ingest.KindE131,
			Port:      e131.Port,
			Interface: cfg.Input.Interface,
			BufSize:   e131.MaxPacketLength,
		}
		if cfg.Input.Multicast {
			for _, u := range subscription(cfg).Universes() {
				c.Groups = append(c.Groups, e131.MulticastAddr(u))
			}
		}
		confs = append(confs, c)
	case config.ProtocolArtNet:
		c := ingest.ListenerConf{Kind: ingest.KindArtNet, Port: artnet.Port}
		if cfg.Input.Network != "" {
			ip, err := artnet.FindArtNetIP(cfg.Input.Network)
			if err != nil {
				return nil, err
			}
			if ip == nil {
				log.With(logger.Fields{"module": "art-net"}).Warnf("no interface in %s, listening on all", cfg.Input.Network)
			} else {
				c.Address = ip.String()
			}
		}
		confs = append(confs, c)
	}

	if cfg.Raw.Enabled {
		c := ingest.ListenerConf{
			Kind:      ingest.KindRaw,
			Port:      cfg.Raw.Port,
			Interface: cfg.Input.Interface,
			BufSize:   ingest.RawBufferSize,
		}
		if cfg.Raw.MulticastGroup != "" {
			g := net.ParseIP(cfg.Raw.MulticastGroup)
			if g == nil || !g.IsMulticast() {
				return nil, fmt.Errorf("raw: bad multicast group %q", cfg.Raw.MulticastGroup)
			}
			c.Groups = []net.IP{g}
		}
		confs = append(confs, c)
	}
	return confs, nil
}
