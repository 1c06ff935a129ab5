package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundRobinPolicy_CyclesThroughWorkersInOrder checks that with two
// workers, three requests select A, B, A.
func TestRoundRobinPolicy_CyclesThroughWorkersInOrder(t *testing.T) {
	p := newRoundRobinPolicy([]string{"A", "B"})
	var got []string
	for i := 0; i < 3; i++ {
		w, err := p.Route("", "")
		require.NoError(t, err)
		got = append(got, w)
	}
	assert.Equal(t, []string{"A", "B", "A"}, got)
}

// TestRoundRobinPolicy_EvenDistribution checks that selections spread
// evenly across workers regardless of request count.
func TestRoundRobinPolicy_EvenDistribution(t *testing.T) {
	workers := []string{"A", "B", "C"}
	p := newRoundRobinPolicy(workers)
	counts := map[string]int{}
	const total = 10
	for i := 0; i < total; i++ {
		w, _ := p.Route("", "")
		counts[w]++
	}
	for _, w := range workers {
		assert.GreaterOrEqual(t, counts[w], total/len(workers))
		assert.LessOrEqual(t, counts[w], total/len(workers)+1)
	}
}

func TestRoundRobinPolicy_NoWorkers(t *testing.T) {
	p := newRoundRobinPolicy(nil)
	_, err := p.Route("", "")
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestRandomPolicy_AlwaysReturnsConfiguredWorker(t *testing.T) {
	workers := []string{"A", "B", "C"}
	p := newRandomPolicy(workers, 42)
	for i := 0; i < 20; i++ {
		w, err := p.Route("", "")
		require.NoError(t, err)
		assert.Contains(t, workers, w)
	}
}

func TestRandomPolicy_NoWorkers(t *testing.T) {
	p := newRandomPolicy(nil, 1)
	_, err := p.Route("", "")
	assert.ErrorIs(t, err, ErrNoWorkers)
}

// TestCacheAwarePolicy_FollowsMatchedWorkerAboveThreshold checks that a
// request sharing enough of its prefix with a prior insert follows that
// worker instead of the smallest-tenant fallback.
func TestCacheAwarePolicy_FollowsMatchedWorkerAboveThreshold(t *testing.T) {
	workers := []string{"A", "B"}
	tree := NewPrefixTree(workers)
	counters := NewCounters(workers)
	opts := CacheAwareOptions{CacheThreshold: 0.5, CacheRoutingProb: 1.0}
	p := newCacheAwarePolicy(workers, tree, counters, opts, 1)

	// First request: empty tree, rate=0, routes to smallest tenant (A,
	// deterministic tie-break), then inserts "hello world" under A.
	w1, err := p.Route("hello world", "")
	require.NoError(t, err)
	assert.Equal(t, "A", w1)

	// Second request shares a 6-char prefix ("hello ") out of 11 chars:
	// rate ≈ 0.545 > 0.5, so it follows the matched worker A.
	w2, err := p.Route("hello there", "")
	require.NoError(t, err)
	assert.Equal(t, "A", w2)
}

// TestCacheAwarePolicy_FallsBackToSmallestTenantBelowThreshold checks
// that a request sharing no prefix with the tree routes to whichever
// worker owns the fewest nodes.
func TestCacheAwarePolicy_FallsBackToSmallestTenantBelowThreshold(t *testing.T) {
	workers := []string{"A", "B"}
	tree := NewPrefixTree(workers)
	counters := NewCounters(workers)
	opts := CacheAwareOptions{CacheThreshold: 0.5, CacheRoutingProb: 1.0}
	p := newCacheAwarePolicy(workers, tree, counters, opts, 1)

	_, err := p.Route("hello world", "")
	require.NoError(t, err)

	// "xyz" shares no prefix with anything in the tree: rate=0 <= 0.5,
	// routes to the smallest tenant. A now owns more nodes than B
	// (having absorbed "hello world"), so B is smallest.
	w, err := p.Route("xyz", "")
	require.NoError(t, err)
	assert.Equal(t, "B", w)
}

func TestCacheAwarePolicy_ShortestQueueBranch(t *testing.T) {
	workers := []string{"A", "B"}
	tree := NewPrefixTree(workers)
	counters := NewCounters(workers)
	counters.Dispatch("A") // A has one in-flight request, B has none
	opts := CacheAwareOptions{CacheThreshold: 0.5, CacheRoutingProb: 0.0}
	p := newCacheAwarePolicy(workers, tree, counters, opts, 1)

	w, err := p.Route("anything", "")
	require.NoError(t, err)
	assert.Equal(t, "B", w)
}

func TestCacheAwarePolicy_EmptyTextRateIsZero(t *testing.T) {
	workers := []string{"A", "B"}
	tree := NewPrefixTree(workers)
	counters := NewCounters(workers)
	opts := CacheAwareOptions{CacheThreshold: 0.0, CacheRoutingProb: 1.0}
	p := newCacheAwarePolicy(workers, tree, counters, opts, 1)

	// rate=0, threshold=0: 0 > 0 is false, so falls to smallest tenant
	// rather than panicking on a 0/0 division.
	w, err := p.Route("", "")
	require.NoError(t, err)
	assert.Contains(t, workers, w)
}

func TestCacheAwarePolicy_FairnessPath_RanksLongestPrefixFirst(t *testing.T) {
	workers := []string{"A", "B"}
	tree := NewPrefixTree(workers)
	counters := NewCounters(workers)
	opts := CacheAwareOptions{EnableFairness: true, FairnessFillSize: 100}
	p := newCacheAwarePolicy(workers, tree, counters, opts, 1)

	w1, err := p.Route("hello world", "u1")
	require.NoError(t, err)

	// Second request shares the full prefix with w1's insert, so w1
	// ranks first by prefix length and (with ample credit) is reselected.
	w2, err := p.Route("hello world", "u1")
	require.NoError(t, err)
	assert.Equal(t, w1, w2)
}

func TestCacheAwarePolicy_NoWorkers(t *testing.T) {
	tree := NewPrefixTree(nil)
	counters := NewCounters(nil)
	p := newCacheAwarePolicy(nil, tree, counters, DefaultCacheAwareOptions(), 1)
	_, err := p.Route("x", "")
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestNewPolicy_ValidatesCacheAwareOptions(t *testing.T) {
	_, err := newPolicy(CacheAware, []string{"A"}, nil, nil, CacheAwareOptions{CacheThreshold: 2.0}, 1)
	assert.Error(t, err)
}
