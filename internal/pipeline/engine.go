// Package pipeline owns the channel buffer and every component that reads or
// writes it. All events are serialised through Engine.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pixelbridge/internal/arbiter"
	"pixelbridge/internal/channels"
	"pixelbridge/internal/clientmqtt"
	"pixelbridge/internal/config"
	"pixelbridge/internal/effects"
	"pixelbridge/internal/gamma"
	"pixelbridge/internal/ingest"
	"pixelbridge/internal/logger"
	"pixelbridge/internal/output"
)

const (
	// datagramQueue bounds the listener to engine channel.
	datagramQueue = 64
	controlQueue  = 16

	controlClient = "mqtt"
)

// Engine is the running pipeline.
type Engine struct {
	mu  sync.Mutex
	log logger.Logger
	cfg config.Config

	buf      *channels.Buffer
	arb      *arbiter.Arbiter
	universe *ingest.UniverseAdapter
	raw      *ingest.RawAdapter
	control  ingest.Stats

	fx         *effects.Engine
	idleName   string
	idle       effects.Params
	manualName string
	manual     effects.Params

	table  *gamma.Table
	mapper *output.Mapper
	sink   output.Sink
	serial bool
	frame  []byte

	ctx       context.Context
	listeners []*ingest.Listener
	datagrams chan ingest.Datagram
	events    chan clientmqtt.Event
}

// New builds an engine for an already validated configuration. The arbiter
// starts in the network state with its watchdog armed at now.
func New(log logger.Logger, cfg *config.Config, sink output.Sink, now time.Time) *Engine {
	e := &Engine{
		log:       log,
		fx:        effects.NewEngine(),
		datagrams: make(chan ingest.Datagram, datagramQueue),
		events:    make(chan clientmqtt.Event, controlQueue),
	}
	e.configure(cfg, sink, now)
	return e
}

func (e *Engine) configure(cfg *config.Config, sink output.Sink, now time.Time) {
	if sink == nil {
		sink = output.NewSink(nil, nil)
	}
	e.cfg = *cfg
	e.sink = sink
	e.serial = cfg.Serial.Enabled

	e.buf = channels.NewBuffer(cfg.Input.ChannelCount)
	e.frame = nil
	e.arb = arbiter.New(arbiter.Options{
		IdleTimeout:  cfg.Effects.IdleTimeoutDuration(),
		IdleEnabled:  cfg.Effects.IdleEnabled,
		ShareControl: cfg.MQTT.ShareControl,
	}, now)

	e.universe = ingest.NewUniverseAdapter(e.log, subscription(cfg), cfg.Input.ZeroPad)
	e.raw = ingest.NewRawAdapter(cfg.Input.ZeroPad)
	e.control = ingest.Stats{}

	e.idleName = cfg.Effects.Name
	e.idle = effectParams(cfg.Effects)
	e.manualName = e.idleName
	e.manual = e.idle
	e.fx.Clear()

	e.table = gamma.New(cfg.Gamma.Gamma, cfg.Gamma.Brightness)
	e.mapper = output.NewMapper(e.log, sink, e.table, cfg.PWM.Gamma, GPIOMask(cfg), Policies(cfg))

	e.log.With(logger.Fields{"module": "pipeline"}).Infof("configured: %s", e.universe.Subscription())
}

// Reconfigure swaps in a new configuration atomically: the buffer is resized,
// the arbiter reset, the gamma table rebuilt and all statistics cleared.
// Running listeners are restarted so multicast groups follow the new range.
func (e *Engine) Reconfigure(cfg *config.Config, sink output.Sink, now time.Time) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	running := e.ctx != nil
	if running {
		e.stopListeners()
	}
	e.drainDatagrams()
	e.configure(cfg, sink, now)
	if running {
		return e.startListeners(e.ctx)
	}
	return nil
}

// drainDatagrams discards datagrams queued under the previous subscription.
func (e *Engine) drainDatagrams() {
	for {
		select {
		case <-e.datagrams:
		default:
			return
		}
	}
}

func subscription(cfg *config.Config) ingest.Subscription {
	return ingest.Subscription{
		Universe:      cfg.Input.Universe,
		ChannelStart:  cfg.Input.ChannelStart,
		ChannelCount:  cfg.Input.ChannelCount,
		UniverseLimit: cfg.Input.UniverseLimit,
	}
}

func effectParams(c config.EffectsConf) effects.Params {
	return effects.Params{
		Color:      effects.Color{R: c.Color.R, G: c.Color.G, B: c.Color.B},
		Brightness: c.Brightness,
		Speed:      c.Speed,
		Reverse:    c.Reverse,
		Mirror:     c.Mirror,
		AllLeds:    c.AllLeds,
	}
}

// HandleDatagram routes a received datagram to its adapter. It reports
// whether the buffer was written.
func (e *Engine) HandleDatagram(d ingest.Datagram) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch d.Kind {
	case ingest.KindE131:
		f, ok := e.universe.DecodeE131(d.Data)
		if !ok {
			return false
		}
		return e.universe.Receive(e.buf, f, d.From, d.At, e.arb)
	case ingest.KindArtNet:
		f, ok := e.universe.DecodeArtNet(d.Data)
		if !ok {
			return false
		}
		return e.universe.Receive(e.buf, f, d.From, d.At, e.arb)
	case ingest.KindRaw:
		return e.raw.Receive(e.buf, d.Data, d.From, d.At, e.arb)
	}
	return false
}

// HandleControl writes channel values received over the control bus.
func (e *Engine) HandleControl(values clientmqtt.Payload, from string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.control.Packets++
	e.control.LastSeen = now
	e.control.LastClient = from

	if !e.arb.ClaimControl(now) {
		e.control.Dropped++
		return false
	}
	for _, v := range values {
		if int(v.Channel) >= e.buf.Len() {
			e.control.LongPackets++
			continue
		}
		e.buf.SetValue(int(v.Channel), v.Value)
	}
	return true
}

// HandleCommand starts or stops a manual effect. Fields missing from an ON
// command keep the values of the previous manual effect.
func (e *Engine) HandleCommand(cmd clientmqtt.Command, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cmd.State == clientmqtt.StateOff {
		e.stopManual(now)
		return nil
	}

	name, p := e.manualName, e.manual
	if cmd.Effect != "" {
		name = cmd.Effect
	}
	if cmd.Color != nil {
		p.Color = effects.Color{R: cmd.Color.R, G: cmd.Color.G, B: cmd.Color.B}
	}
	if cmd.Brightness != nil {
		p.Brightness = *cmd.Brightness
	}
	if cmd.Speed != nil {
		p.Speed = *cmd.Speed
	}
	if cmd.Reverse != nil {
		p.Reverse = *cmd.Reverse
	}
	if cmd.Mirror != nil {
		p.Mirror = *cmd.Mirror
	}
	if cmd.AllLeds != nil {
		p.AllLeds = *cmd.AllLeds
	}
	return e.startManual(name, p, now)
}

// HandleEvent dispatches one control bus event.
func (e *Engine) HandleEvent(ev clientmqtt.Event) {
	if ev.DMX != nil {
		e.HandleControl(ev.DMX, controlClient, ev.At)
	}
	if ev.Command != nil {
		if err := e.HandleCommand(*ev.Command, ev.At); err != nil {
			e.log.With(logger.Fields{"module": "pipeline"}).Warnf("command: %v", err)
		}
	}
}

// StartManualEffect takes the buffer for the named effect until
// StopManualEffect is called.
func (e *Engine) StartManualEffect(name string, p effects.Params, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.startManual(name, p, now)
}

// StopManualEffect hands the buffer back to the network.
func (e *Engine) StopManualEffect(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopManual(now)
}

func (e *Engine) startManual(name string, p effects.Params, now time.Time) error {
	if err := e.fx.Set(name, p, now); err != nil {
		return err
	}
	e.manualName, e.manual = name, p
	e.arb.StartManual()
	e.log.With(logger.Fields{"module": "pipeline"}).Infof("manual effect %s started", name)
	return nil
}

func (e *Engine) stopManual(now time.Time) {
	if e.arb.Active() != arbiter.Manual {
		return
	}
	e.arb.StopManual(now)
	e.fx.Clear()
	e.log.With(logger.Fields{"module": "pipeline"}).Info("manual effect stopped")
}

// Tick runs one output period: the idle watchdog, the effect frame when an
// effect owns the buffer, PWM mapping and the serial frame. It returns the
// number of pins written.
func (e *Engine) Tick(now time.Time) int {
	e.mu.Lock()

	if e.arb.Expire(now) {
		if err := e.fx.Set(e.idleName, e.idle, now); err != nil {
			e.log.With(logger.Fields{"module": "pipeline"}).Errorf("idle effect %q: %v", e.idleName, err)
		}
		e.log.With(logger.Fields{"module": "pipeline"}).Info("no data, idle effect started")
	}
	if e.arb.Active().Effect() {
		e.fx.ProduceFrame(e.buf.Bytes(), now)
	}

	written := e.mapper.Tick(e.buf)

	var frame []byte
	sink := e.sink
	if e.serial {
		e.frame = e.buf.Snapshot(e.frame)
		frame = e.frame
	}
	e.mu.Unlock()

	if frame != nil {
		if err := sink.EmitSerial(frame); err != nil {
			e.log.With(logger.Fields{"module": "serial"}).Errorf("emit: %v", err)
		}
	}
	return written
}

// Active returns the source that owns the buffer.
func (e *Engine) Active() arbiter.Source {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.arb.Active()
}

// Channels returns a copy of the channel buffer.
func (e *Engine) Channels() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.buf.Snapshot(nil)
}

// Events is where the control bus delivers its messages.
func (e *Engine) Events() chan<- clientmqtt.Event {
	return e.events
}

func (e *Engine) tickPeriod() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg.Output.TickDuration()
}
