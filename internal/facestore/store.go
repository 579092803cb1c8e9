// Package facestore keeps an in-memory, snapshot-isolated view of every
// enrolled face embedding. Recognition scans read one immutable snapshot for
// their whole run; enrollment, update, and delete install a fresh snapshot
// after committing to the database. Readers never block writers and a write
// that lands mid-scan is invisible to that scan and visible to the next.
package facestore

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is one enrolled identity as the matcher sees it. Embedding is
// unit-norm; the slice is never mutated after the snapshot is built.
type Entry struct {
	ID        uuid.UUID
	Name      string
	Embedding []float64
	CreatedAt time.Time
}

// Snapshot is an immutable point-in-time view of the store. Entries are
// ordered by CreatedAt ascending (ties broken by ID) so a linear max scan
// resolves equal similarities in favor of the earliest enrollment.
type Snapshot struct {
	entries []Entry
	takenAt time.Time
}

func (s *Snapshot) Entries() []Entry { return s.entries }
func (s *Snapshot) Len() int         { return len(s.entries) }
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Loader supplies the durable truth a snapshot is rebuilt from.
type Loader interface {
	LoadEntries(ctx context.Context) ([]Entry, error)
}

// Store holds the current snapshot behind an atomic pointer. Current is a
// lock-free read; Reload rebuilds from the loader behind singleflight so
// concurrent writers trigger one rebuild, not a stampede.
type Store struct {
	loader Loader
	snap   atomic.Pointer[Snapshot]
	sf     singleflight.Group
	logger *zap.Logger
}

func New(loader Loader) *Store {
	s := &Store{
		loader: loader,
		logger: zap.L().Named("facestore"),
	}
	s.snap.Store(&Snapshot{takenAt: time.Now().UTC()})
	return s
}

// Current returns the snapshot installed at the time of the call.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

// Reload rebuilds the snapshot from the loader and installs it atomically.
func (s *Store) Reload(ctx context.Context) error {
	_, err, _ := s.sf.Do("reload", func() (any, error) {
		entries, err := s.loader.LoadEntries(ctx)
		if err != nil {
			return nil, err
		}

		sort.Slice(entries, func(i, j int) bool {
			if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
				return entries[i].ID.String() < entries[j].ID.String()
			}
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		})

		next := &Snapshot{entries: entries, takenAt: time.Now().UTC()}
		s.snap.Store(next)
		s.logger.Debug("snapshot installed", zap.Int("entries", len(entries)))
		return nil, nil
	})
	return err
}
