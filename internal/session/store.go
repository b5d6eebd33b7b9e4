// internal/session/store.go
//
// Folio – In-memory form sessions.
//
// Context
// -------
// Store lazily creates one *form.Form per visitor id, keeps them in a
// sync.Map, and evicts them on idle TTL or LRU pressure (evictor.go).
// Concurrent first requests for the same visitor are collapsed with
// singleflight so exactly one Form is built.
//
// Notes
// -----
//   - An evicted Form is Closed, which cancels its reset timer.  A handler
//     still holding it sees form.ErrClosed and should call Get again.
//   - Sessions do not survive a restart.  Nothing in a Form is worth
//     persisting: accepted messages are already archived.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/folio/internal/form"
	"github.com/yanizio/folio/internal/metrics"
)

// Defaults applied by New when Options leave a field zero.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 1000
	EvictInterval = time.Minute
)

// Factory builds the Form for a new visitor.
type Factory func(visitorID string) *form.Form

// Options tunes eviction.  A negative EvictInterval disables the
// background loop; callers then drive Sweep themselves.
type Options struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
	Logger        *zap.SugaredLogger
}

type entry struct {
	form     *form.Form
	lastSeen int64 // UnixNano
}

// Store maps visitor ids to Forms.
type Store struct {
	newForm    Factory
	sfg        singleflight.Group
	m          sync.Map
	size       atomic.Int64
	idleTTL    time.Duration
	maxEntries int
	log        *zap.SugaredLogger
	now        func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Store and starts the background evictor.
func New(newForm Factory, opts Options) *Store {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = IdleTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = MaxEntries
	}
	if opts.EvictInterval == 0 {
		opts.EvictInterval = EvictInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.S()
	}

	s := &Store{
		newForm:    newForm,
		idleTTL:    opts.IdleTTL,
		maxEntries: opts.MaxEntries,
		log:        opts.Logger,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if opts.EvictInterval > 0 {
		go s.evictLoop(opts.EvictInterval)
	} else {
		close(s.done)
	}
	return s
}

// Get returns the Form for visitorID, creating it on first use.
func (s *Store) Get(visitorID string) *form.Form {
	if v, ok := s.m.Load(visitorID); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, s.now().UnixNano())
		return ent.form
	}

	v, _, _ := s.sfg.Do(visitorID, func() (any, error) {
		// Double-check after singleflight barrier.
		if v, ok := s.m.Load(visitorID); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, s.now().UnixNano())
			return ent.form, nil
		}
		ent := &entry{
			form:     s.newForm(visitorID),
			lastSeen: s.now().UnixNano(),
		}
		s.m.Store(visitorID, ent)
		s.size.Add(1)
		metrics.ActiveSessions.Inc()
		return ent.form, nil
	})
	return v.(*form.Form)
}

// Len returns the number of live sessions.
func (s *Store) Len() int { return int(s.size.Load()) }

// Close stops the evictor and closes every Form.  Safe to call twice.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.m.Range(func(key, _ any) bool {
			s.remove(key.(string))
			return true
		})
	})
}

// remove deletes key and closes its Form.  Reports whether it was present.
func (s *Store) remove(key string) bool {
	v, ok := s.m.LoadAndDelete(key)
	if !ok {
		return false
	}
	v.(*entry).form.Close()
	s.size.Add(-1)
	metrics.ActiveSessions.Dec()
	return true
}
