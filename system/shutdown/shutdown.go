package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 10 * time.Second

var exit = os.Exit

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Hooks runs cleanup steps in reverse registration order, like defer, so
// consumers stop before the things they depend on.
type Hooks struct {
	mu    sync.Mutex
	hooks []hook
	done  bool
}

func (h *Hooks) Add(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name, fn})
}

// Run executes every hook once, even when earlier ones fail. Later calls are
// no-ops.
func (h *Hooks) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return nil
	}
	h.done = true
	hooks := h.hooks
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hk := hooks[i]
		if err := hk.fn(ctx); err != nil {
			log.Error().Err(err).Str("hook", hk.name).Msg("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", hk.name, err))
			continue
		}
		log.Info().Str("hook", hk.name).Msg("Shutdown step complete")
	}
	return errors.Join(errs...)
}

func Shutdown(h *Hooks) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := h.Run(ctx); err != nil {
		log.Warn().Err(err).Msg("Shutdown completed with errors")
		return
	}
	log.Info().Msg("Shutdown complete")
}

func ShutdownWithError(h *Hooks, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown(h)
	exit(1)
}
