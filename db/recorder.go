package db

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

// Recorder writes every snapshot and apply result to the history database.
// Storage errors are logged, never returned to the loop.
type Recorder struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

func (r *Recorder) RecordSnapshot(snap proxy.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := InsertSnapshot(r.db, snap); err != nil {
		log.Error().Err(err).Msg("Failed to record snapshot")
	}
}

func (r *Recorder) RecordApply(_ proxy.Command, res proxy.ApplyResult) {
	if len(res.Outcomes) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batchID, err := InsertApplyResult(r.db, r.now(), res)
	if err != nil {
		log.Error().Err(err).Msg("Failed to record command")
		return
	}
	log.Debug().Str("batch_id", batchID).Int("entries", len(res.Outcomes)).Msg("Recorded command")
}
