package db

import (
	"context"
	"time"

	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/rs/zerolog/log"
)

// Watch streams the filtered session list. The current set is sent right away
// and again after every change, whether made through this DB or committed by
// another process. The channel is closed when ctx is done.
func (db *DB) Watch(ctx context.Context, filter SessionFilter) <-chan []models.Session {
	out := make(chan []models.Session, 1)
	changed, unsubscribe := db.subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		ticker := time.NewTicker(db.pollInterval)
		defer ticker.Stop()

		version, err := db.dataVersion(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("data_version unavailable")
		}

		send := func() bool {
			sessions, err := db.ListSessions(ctx, filter)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.Warn().Err(err).Msg("failed to refresh session list")
				return true
			}
			select {
			case out <- sessions:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !send() {
					return
				}
			case <-ticker.C:
				v, err := db.dataVersion(ctx)
				if err != nil || v == version {
					continue
				}
				version = v
				if !send() {
					return
				}
			}
		}
	}()

	return out
}
