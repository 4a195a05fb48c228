package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
//
// EmitTimeout bounds how long a blocking Emit waits for buffer space when
// DropIfFull is false; zero waits until the caller's context ends.
type Config struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	EmitTimeout time.Duration
}

// Dispatcher asynchronously forwards audit events to a sink from one goroutine.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	onPanic   func(error)
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg.Enabled is false; a nil Dispatcher
// accepts and discards events. onPanic may be nil.
func NewDispatcher(cfg Config, sink Sink, onPanic func(error)) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		onPanic: onPanic,
		ch:      make(chan Event, cfg.BufferSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the worker from a misbehaving sink.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
			if d.onPanic != nil {
				d.onPanic(fmt.Errorf("audit sink panic: %v", r))
			}
		}
	}()

	d.sink.Emit(context.Background(), event)
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var timeout <-chan time.Time
	if d.cfg.EmitTimeout > 0 {
		timer := time.NewTimer(d.cfg.EmitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-timeout:
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close drains buffered events into the sink and stops the worker. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
