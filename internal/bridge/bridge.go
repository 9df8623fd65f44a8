// Package bridge runs the sync loop between one thermostat and its consumer.
//
// Two activities run independently: a ticker that reads and publishes the
// device state, and a worker that applies queued commands one at a time. A
// slow poll never delays command delivery, and a command that arrives
// mid-poll is queued rather than dropped.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

// Device is the proxy surface the loop drives.
type Device interface {
	GetState(ctx context.Context) proxy.Snapshot
	Apply(ctx context.Context, cmd proxy.Command) proxy.ApplyResult
}

type Publisher interface {
	PublishState(ctx context.Context, snap proxy.Snapshot) error
	PublishLastAlive(ctx context.Context, t time.Time) error
}

// Recorder observes every snapshot and apply result. Implementations must not
// block for long; they run on the loop's goroutines.
type Recorder interface {
	RecordSnapshot(snap proxy.Snapshot)
	RecordApply(cmd proxy.Command, res proxy.ApplyResult)
}

type Loop struct {
	device    Device
	publisher Publisher
	interval  time.Duration
	recorders []Recorder

	queueMu sync.Mutex
	queue   []proxy.Command
	wake    chan struct{}

	latestMu sync.RWMutex
	latest   *proxy.Snapshot
}

func New(device Device, publisher Publisher, interval time.Duration, recorders ...Recorder) *Loop {
	return &Loop{
		device:    device,
		publisher: publisher,
		interval:  interval,
		recorders: recorders,
		wake:      make(chan struct{}, 1),
	}
}

// Submit queues a command for the worker. It never blocks and never drops.
func (l *Loop) Submit(cmd proxy.Command) {
	l.queueMu.Lock()
	l.queue = append(l.queue, cmd)
	l.queueMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued commands not yet taken by the worker.
func (l *Loop) Pending() int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return len(l.queue)
}

// Latest returns the most recent snapshot, if any poll has completed.
func (l *Loop) Latest() (proxy.Snapshot, bool) {
	l.latestMu.RLock()
	defer l.latestMu.RUnlock()
	if l.latest == nil {
		return proxy.Snapshot{}, false
	}
	return *l.latest, true
}

// Run polls immediately and then every interval, while the command worker
// drains the queue. It returns when ctx is cancelled and both activities have
// stopped.
func (l *Loop) Run(ctx context.Context) {
	log.Info().Dur("interval", l.interval).Msg("Starting sync loop")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.runCommands(ctx)
	}()
	go func() {
		defer wg.Done()
		l.runPolls(ctx)
	}()
	wg.Wait()

	log.Info().Int("pending_commands", l.Pending()).Msg("Sync loop stopped")
}

func (l *Loop) runPolls(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.Poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh reads the device and updates the cached snapshot. Nothing is
// published or recorded.
func (l *Loop) Refresh(ctx context.Context) proxy.Snapshot {
	snap := l.device.GetState(ctx)

	l.latestMu.Lock()
	l.latest = &snap
	l.latestMu.Unlock()
	return snap
}

// Poll performs one read-and-publish cycle.
func (l *Loop) Poll(ctx context.Context) proxy.Snapshot {
	snap := l.Refresh(ctx)

	if snap.Partial() {
		failed := make([]string, len(snap.Failures))
		for i, f := range snap.Failures {
			failed[i] = f.Point
		}
		log.Warn().Strs("failed_points", failed).Msg("Publishing partial snapshot")
	}

	if err := l.publisher.PublishState(ctx, snap); err != nil {
		log.Error().Err(err).Msg("Failed to publish snapshot")
	}
	if err := l.publisher.PublishLastAlive(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to publish heartbeat")
	}

	for _, r := range l.recorders {
		r.RecordSnapshot(snap)
	}
	return snap
}

func (l *Loop) runCommands(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		cmd, ok := l.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
			}
			continue
		}
		l.apply(ctx, cmd)
	}
}

func (l *Loop) next() (proxy.Command, bool) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	cmd := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return cmd, true
}

// Apply applies cmd on the caller's goroutine and records the result. The
// device serializes it against queued commands.
func (l *Loop) Apply(ctx context.Context, cmd proxy.Command) proxy.ApplyResult {
	return l.apply(ctx, cmd)
}

func (l *Loop) apply(ctx context.Context, cmd proxy.Command) proxy.ApplyResult {
	res := l.device.Apply(ctx, cmd)

	log.Info().
		Int("accepted", len(res.Accepted())).
		Int("rejected", len(res.Rejected())).
		Msg("Applied command")

	for _, r := range l.recorders {
		r.RecordApply(cmd, res)
	}
	return res
}
