package vrrp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/mdlayher/arp"
)

// Instance is the sole owner of one Router: it is the single
// goroutine that calls HandleInput and drains the resulting Actions,
// satisfying the core's single-threaded, non-suspending contract. All
// I/O — sending and receiving advertisements, sending ARP, adding and
// removing virtual addresses — happens here, never inside Router.
//
// Multiple Instances (distinct VRIDs, or the same VRID on distinct
// interfaces) run independently; nothing is shared between them.
type Instance struct {
	router    *Router
	transport *Transport
	arp       *ARPClient
	ipManager *IPManager
	metrics   *Metrics
	logger    log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewInstance builds an Instance bound to ifaceName for the given
// Parameters. It opens the raw VRRP socket, the ARP client, and the
// netlink IP manager; none of them are touched until Start is called.
func NewInstance(params *Parameters, ifaceName string, logger log.Logger) (*Instance, error) {
	transport, err := NewTransport(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("vrrp: instance: %w", err)
	}

	arpClient, err := NewARPClient(transport.Interface())
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("vrrp: instance: %w", err)
	}

	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "vrid", params.VRID, "interface", ifaceName)

	return &Instance{
		router:    NewRouter(params),
		transport: transport,
		arp:       arpClient,
		ipManager: NewIPManager(transport.Interface()),
		metrics:   NewMetrics(params.VRID, ifaceName),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}, nil
}

// State returns the Router's current state. Safe to call
// concurrently with Start/Stop; it reads the Router under the same
// lock dispatch holds around HandleInput.
func (in *Instance) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.router.State()
}

// Start issues Startup and runs the instance's event loop in a new
// goroutine until ctx is cancelled or Stop is called.
func (in *Instance) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return fmt.Errorf("vrrp: instance already running")
	}
	in.running = true
	in.mu.Unlock()

	recvCh := make(chan recvResult, 8)
	in.wg.Add(1)
	go in.recvLoop(recvCh)

	arpCh := make(chan ReceivedPacket, 8)
	in.wg.Add(1)
	go in.arpRecvLoop(arpCh)

	in.wg.Add(1)
	go in.run(ctx, recvCh, arpCh)

	return nil
}

// Stop requests the instance shut down — sending shutdown
// advertisements and releasing virtual addresses if Active — and
// waits for its goroutines to exit.
func (in *Instance) Stop() error {
	in.mu.Lock()
	if !in.running {
		in.mu.Unlock()
		return nil
	}
	in.running = false
	in.mu.Unlock()

	close(in.stopCh)
	in.wg.Wait()
	_ = in.arp.Close()
	return in.transport.Close()
}

type recvResult struct {
	pkt *Packet
	src net.IP
}

func (in *Instance) recvLoop(out chan<- recvResult) {
	defer in.wg.Done()
	for {
		pkt, src, err := in.transport.Receive()
		if err != nil {
			level.Debug(in.logger).Log("msg", "receive stopped", "err", err)
			return
		}
		if VRID(pkt.VRID) != in.router.Parameters().VRID {
			continue // advertisement for a different virtual router, ignore
		}
		select {
		case out <- recvResult{pkt: pkt, src: src}:
		case <-in.stopCh:
			return
		}
	}
}

// arpRecvLoop hands every ARP request seen on the interface to run as
// a ReceivedRequestARP input, whatever its target; the Router answers
// only those targeting a virtual address. Every other ARP operation,
// including the replies and gratuitous ARPs the instance itself sends
// (which loop back on some drivers), is dropped here.
func (in *Instance) arpRecvLoop(out chan<- ReceivedPacket) {
	defer in.wg.Done()
	err := in.arp.Listen(func(pkt *arp.Packet) bool {
		if pkt.Operation != arp.OperationRequest {
			return true
		}
		select {
		case out <- RequestARPPacket(pkt.SenderHardwareAddr, pkt.SenderIP, pkt.TargetIP):
		case <-in.stopCh:
			return false
		}
		return true
	})
	if err != nil {
		level.Debug(in.logger).Log("msg", "arp listen stopped", "err", err)
	}
}

// run is the single goroutine that owns the Router: every HandleInput
// call and every Actions drain happens here, in this order, never
// concurrently with another call on the same Router.
func (in *Instance) run(ctx context.Context, recvCh <-chan recvResult, arpCh <-chan ReceivedPacket) {
	defer in.wg.Done()

	now := time.Now()
	in.dispatch(now, StartupInput())

	for {
		deadline := in.router.NextTimer(time.Now())
		timer := time.NewTimer(time.Until(deadline))

		select {
		case <-ctx.Done():
			timer.Stop()
			in.dispatch(time.Now(), ShutdownInput())
			return

		case <-in.stopCh:
			timer.Stop()
			in.dispatch(time.Now(), ShutdownInput())
			return

		case <-timer.C:
			in.dispatch(time.Now(), TimerInput())

		case recv := <-recvCh:
			timer.Stop()
			in.metrics.ObserveReceivedAdvertisement()
			in.dispatch(time.Now(), PacketInput(in.toReceivedPacket(recv)))

		case arpPkt := <-arpCh:
			timer.Stop()
			in.dispatch(time.Now(), PacketInput(arpPkt))
		}
	}
}

func (in *Instance) toReceivedPacket(recv recvResult) ReceivedPacket {
	if recv.pkt.Priority == PriorityShutdown {
		return ShutdownAdvertisementPacket(recv.pkt.Interval)
	}
	return AdvertisementPacket(recv.src, recv.pkt.Priority, recv.pkt.Interval)
}

// dispatch runs one HandleInput call and drains its Actions,
// performing the I/O each one names.
func (in *Instance) dispatch(now time.Time, input Input) {
	in.mu.Lock()
	actions := in.router.HandleInput(now, input)
	state := in.router.State()
	in.mu.Unlock()

	in.metrics.ObserveState(state.Kind)

	for {
		action, ok := actions.Next()
		if !ok {
			return
		}
		in.perform(action)
	}
}

func (in *Instance) perform(action Action) {
	params := in.router.Parameters()

	switch action.Kind {
	case ActionActivate:
		for _, ip := range params.Addresses {
			if err := in.ipManager.AddIP(ip); err != nil {
				level.Error(in.logger).Log("msg", "add virtual address failed", "addr", ip, "err", err)
			}
		}

	case ActionDeactivate:
		for _, ip := range params.Addresses {
			if err := in.ipManager.DelIP(ip); err != nil {
				level.Error(in.logger).Log("msg", "remove virtual address failed", "addr", ip, "err", err)
			}
		}

	case ActionSend:
		in.performSend(action, params)

	case ActionRoute:
		level.Debug(in.logger).Log("msg", "datagram disposition", "route", action.Route.String())
	}
}

func (in *Instance) performSend(action Action, params *Parameters) {
	in.metrics.ObserveSend(action.Send)

	switch action.Send {
	case SendAdvertisement:
		pkt := NewPacket(params.VRID, params.Priority(), params.AdvInterval, params.Addresses)
		if err := in.transport.Send(pkt); err != nil {
			level.Error(in.logger).Log("msg", "send advertisement failed", "err", err)
		}

	case SendShutdownAdvertisement:
		pkt := NewPacket(params.VRID, PriorityShutdown, params.AdvInterval, params.Addresses)
		if err := in.transport.Send(pkt); err != nil {
			level.Error(in.logger).Log("msg", "send shutdown advertisement failed", "err", err)
		}

	case SendGratuitousARP:
		if err := in.arp.AnnounceGratuitous(action.SenderMAC, action.SenderIP); err != nil {
			level.Error(in.logger).Log("msg", "gratuitous arp failed", "addr", action.SenderIP, "err", err)
		}

	case SendReplyARP:
		if err := in.arp.Reply(action.SenderMAC, action.SenderIP, action.TargetMAC, action.TargetIP); err != nil {
			level.Error(in.logger).Log("msg", "arp reply failed", "err", err)
		}
	}
}
