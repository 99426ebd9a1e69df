// Package counters holds the atomic tallies the dashboard displays:
// rule/cache/test/upload outcomes. All increments are relaxed — these are
// display-only and eventual consistency across a frame or two is fine.
package counters

import "sync/atomic"

// CacheType mirrors the distri cache-op outcome reported on a successful
// rule finish.
type CacheType int

const (
	CacheMiss CacheType = iota
	CacheError
	CacheHit
	CacheIgnored
	CacheLocalKeyUnchangedHit
)

// Counters is the set of atomic tallies fed by the dispatcher and read by
// the frame composer.
type Counters struct {
	RulesCompleted atomic.Int64
	RulesUpdated   atomic.Int64 // rule produced a new artifact (not a local-key hit)

	CacheMiss  atomic.Int64
	CacheError atomic.Int64

	TestPass atomic.Int64
	TestFail atomic.Int64
	TestSkip atomic.Int64

	HTTPUploadsScheduled atomic.Int64
	HTTPUploadsStarted   atomic.Int64
	HTTPUploadsDone      atomic.Int64
	HTTPUploadsFailed    atomic.Int64
}

// New returns a zeroed Counters.
func New() *Counters { return &Counters{} }

// OnRuleFinishedSuccess folds a successful rule finish into the cache and
// update tallies. Per spec §4.E:
//
//	type==MISS  -> cache_miss++
//	type==ERROR -> cache_error++
//	type==HIT | IGNORED | LOCAL_KEY_UNCHANGED_HIT -> no miss/error
//	type!=LOCAL_KEY_UNCHANGED_HIT -> rules_updated++
func (c *Counters) OnRuleFinishedSuccess(cacheType CacheType) {
	c.RulesCompleted.Add(1)
	switch cacheType {
	case CacheMiss:
		c.CacheMiss.Add(1)
	case CacheError:
		c.CacheError.Add(1)
	}
	if cacheType != CacheLocalKeyUnchangedHit {
		c.RulesUpdated.Add(1)
	}
}

// OnRuleFinishedOther counts any non-SUCCESS rule finish (the engine still
// needs the total for N/M JOBS bookkeeping) without touching the cache
// tallies.
func (c *Counters) OnRuleFinishedOther() {
	c.RulesCompleted.Add(1)
}
