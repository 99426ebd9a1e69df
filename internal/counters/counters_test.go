package counters

import "testing"

func TestCacheFold(t *testing.T) {
	c := New()
	c.OnRuleFinishedSuccess(CacheMiss)
	c.OnRuleFinishedSuccess(CacheError)
	c.OnRuleFinishedSuccess(CacheHit)
	c.OnRuleFinishedSuccess(CacheLocalKeyUnchangedHit)

	if got := c.RulesCompleted.Load(); got != 4 {
		t.Fatalf("RulesCompleted = %d, want 4", got)
	}
	if got := c.CacheMiss.Load(); got != 1 {
		t.Fatalf("CacheMiss = %d, want 1", got)
	}
	if got := c.CacheError.Load(); got != 1 {
		t.Fatalf("CacheError = %d, want 1", got)
	}
	// MISS, ERROR, HIT all count as "updated"; LOCAL_KEY_UNCHANGED_HIT does not.
	if got := c.RulesUpdated.Load(); got != 3 {
		t.Fatalf("RulesUpdated = %d, want 3", got)
	}
	if c.RulesUpdated.Load() > c.RulesCompleted.Load() {
		t.Fatalf("invariant violated: RulesUpdated > RulesCompleted")
	}
}
