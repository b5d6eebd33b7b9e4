// evictor.go houses the eviction loop for Store.  Every EvictInterval it
// scans the map and removes:
//
//   - forms idle longer than idleTTL
//   - least-recently-used forms when map size exceeds maxEntries
//
// Each eviction closes the Form, is logged at debug, and updates
// Prometheus counters.
package session

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/yanizio/folio/internal/metrics"
)

func (s *Store) evictLoop(every time.Duration) {
	defer close(s.done)
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Infow("form sessions evicted", "count", n, "active", s.Len())
			}
		}
	}
}

// Sweep runs one idle pass and one LRU pass and returns how many sessions
// were evicted.
func (s *Store) Sweep() int {
	now := s.now().UnixNano()
	evicted := 0

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	s.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
		if idle > s.idleTTL && s.remove(key.(string)) {
			s.log.Debugw("form session evicted", "visitor", key, "idle", idle.Truncate(time.Second))
			metrics.SessionEvictTotal.Inc()
			evicted++
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	count := s.Len()
	if s.maxEntries > 0 && count > s.maxEntries {
		type kv struct {
			key string
			at  int64
		}
		all := make([]kv, 0, count)
		s.m.Range(func(key, value any) bool {
			all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&value.(*entry).lastSeen)})
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for i := 0; i < len(all)-s.maxEntries; i++ {
			if s.remove(all[i].key) {
				s.log.Debugw("form session evicted (LRU pressure)", "visitor", all[i].key)
				metrics.SessionEvictTotal.Inc()
				evicted++
			}
		}
	}
	return evicted
}
