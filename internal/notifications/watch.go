package notifications

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

type Sender interface {
	Send(title, message string) error
}

// Watch alerts once the device has answered no reads for threshold
// consecutive polls, and again when it comes back.
type Watch struct {
	sender    Sender
	device    string
	threshold int

	mu     sync.Mutex
	misses int
	down   bool
}

func NewWatch(sender Sender, device string, threshold int) *Watch {
	if threshold < 1 {
		threshold = 1
	}
	return &Watch{sender: sender, device: device, threshold: threshold}
}

func (w *Watch) RecordSnapshot(snap proxy.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !snap.Empty() {
		if w.down {
			w.notify("Thermostat reachable",
				fmt.Sprintf("%s answered again after %d failed polls", w.device, w.misses))
		}
		w.misses = 0
		w.down = false
		return
	}

	w.misses++
	if w.misses >= w.threshold && !w.down {
		w.down = true
		w.notify("Thermostat unreachable",
			fmt.Sprintf("%s has not answered for %d consecutive polls", w.device, w.misses))
	}
}

// RecordApply is a no-op; reachability is judged from polls alone.
func (w *Watch) RecordApply(proxy.Command, proxy.ApplyResult) {}

func (w *Watch) Down() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.down
}

func (w *Watch) notify(title, message string) {
	log.Warn().Str("device", w.device).Msg(message)
	if err := w.sender.Send(title, message); err != nil {
		log.Error().Err(err).Str("title", title).Msg("Failed to send notification")
	}
}
