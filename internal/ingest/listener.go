package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"pixelbridge/internal/logger"

	"golang.org/x/net/ipv4"
)

// Kind identifies which adapter a datagram is meant for.
type Kind uint8

const (
	KindE131 Kind = iota
	KindArtNet
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindE131:
		return "e131"
	case KindArtNet:
		return "art-net"
	case KindRaw:
		return "udpraw"
	}
	return "unknown"
}

// Datagram is one received packet, copied out of the socket buffer.
type Datagram struct {
	Kind Kind
	Data []byte
	From string
	At   time.Time
}

// ListenerConf describes one UDP socket.
type ListenerConf struct {
	Kind      Kind
	Address   string   // Address - локальный адрес, пустой для всех интерфейсов.
	Port      int      // Port - UDP порт.
	Groups    []net.IP // Groups - multicast группы.
	Interface string   // Interface - интерфейс для multicast, пустой по умолчанию.
	BufSize   int      // BufSize - размер буфера чтения.
}

// Listener reads datagrams and hands them to the pipeline without blocking.
type Listener struct {
	log     logger.Logger
	cfg     ListenerConf
	conn    *net.UDPConn
	pc      *ipv4.PacketConn
	iface   *net.Interface
	joined  []net.IP
	out     chan<- Datagram
	dropped uint64
	wg      sync.WaitGroup
}

// NewListener конструктор.
func NewListener(log logger.Logger, cfg ListenerConf) *Listener {
	if cfg.BufSize <= 0 {
		cfg.BufSize = RawBufferSize
	}
	return &Listener{log: log, cfg: cfg}
}

// Start opens the socket, joins the multicast groups and starts reading.
func (l *Listener) Start(ctx context.Context, out chan<- Datagram) error {
	var ip net.IP
	if l.cfg.Address != "" {
		if ip = net.ParseIP(l.cfg.Address); ip == nil {
			return fmt.Errorf("%s: bad listen address %q", l.cfg.Kind, l.cfg.Address)
		}
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip, Port: l.cfg.Port})
	if err != nil {
		return fmt.Errorf("%s: failed to listen on port %d: %w", l.cfg.Kind, l.cfg.Port, err)
	}
	l.conn = conn
	l.pc = ipv4.NewPacketConn(conn)
	l.out = out

	if l.cfg.Interface != "" {
		l.iface, err = net.InterfaceByName(l.cfg.Interface)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("%s: interface %q: %w", l.cfg.Kind, l.cfg.Interface, err)
		}
	}

	for _, g := range l.cfg.Groups {
		if err := l.pc.JoinGroup(l.iface, &net.UDPAddr{IP: g}); err != nil {
			l.leave()
			_ = conn.Close()
			return fmt.Errorf("%s: failed to join %s: %w", l.cfg.Kind, g, err)
		}
		l.joined = append(l.joined, g)
		l.log.With(logger.Fields{"module": l.cfg.Kind.String()}).Debugf("joined multicast group %s", g)
	}

	l.log.With(logger.Fields{"module": l.cfg.Kind.String()}).Infof("listening on %s", conn.LocalAddr())

	l.wg.Add(1)
	go l.readLoop(ctx)
	return nil
}

// Stop leaves the multicast groups and closes the socket.
func (l *Listener) Stop() {
	if l.conn == nil {
		return
	}
	l.leave()
	_ = l.conn.Close()
	l.wg.Wait()
	l.conn = nil
}

// Addr returns the bound local address, nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Dropped counts datagrams discarded because the pipeline was busy.
func (l *Listener) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}

func (l *Listener) leave() {
	for _, g := range l.joined {
		if err := l.pc.LeaveGroup(l.iface, &net.UDPAddr{IP: g}); err != nil {
			l.log.With(logger.Fields{"module": l.cfg.Kind.String()}).Warnf("failed to leave %s: %v", g, err)
		}
	}
	l.joined = nil
}

func (l *Listener) readLoop(ctx context.Context) {
	defer l.wg.Done()
	buf := make([]byte, l.cfg.BufSize)
	for {
		n, src, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.With(logger.Fields{"module": l.cfg.Kind.String()}).Errorf("read error: %v", err)
			continue
		}

		d := Datagram{Kind: l.cfg.Kind, Data: make([]byte, n), From: src.IP.String(), At: time.Now()}
		copy(d.Data, buf[:n])

		select {
		case <-ctx.Done():
			return
		case l.out <- d:
		default:
			atomic.AddUint64(&l.dropped, 1)
		}
	}
}
