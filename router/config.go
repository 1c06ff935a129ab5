package router

import "fmt"

// PolicyKind names which of the three interchangeable routing policies a
// Router uses.
type PolicyKind int

const (
	RoundRobin PolicyKind = iota
	Random
	CacheAware
)

func (k PolicyKind) String() string {
	switch k {
	case RoundRobin:
		return "round-robin"
	case Random:
		return "random"
	case CacheAware:
		return "cache-aware"
	default:
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}
}

// CacheAwareOptions configures the cache-aware policy.
type CacheAwareOptions struct {
	// CacheThreshold is the minimum prefix-match ratio (characters matched
	// / characters in request text) that elects the matched worker over
	// the smallest-tenant worker. Must be in [0, 1].
	CacheThreshold float64
	// CacheRoutingProb is the probability of consulting the prefix tree
	// rather than the shortest-queue fallback for a given request. Must
	// be in [0, 1].
	CacheRoutingProb float64
	// EvictionIntervalSecs is the period, in seconds, between background
	// eviction passes. Must be >= 1.
	EvictionIntervalSecs uint
	// MaxTreeSize bounds the prefix tree's node count. Must be >= 1.
	MaxTreeSize uint
	// EnableFairness switches the policy from the probabilistic
	// cache/shortest-queue mix to the explicit per-user credit scheme.
	EnableFairness bool
	// FairnessFillSize is the per-(user, worker) credit refill amount,
	// denominated in characters. Must be >= 1.
	FairnessFillSize uint
}

// DefaultCacheAwareOptions returns reasonable defaults, used by the CLI
// when a flag is left unset.
func DefaultCacheAwareOptions() CacheAwareOptions {
	return CacheAwareOptions{
		CacheThreshold:       0.5,
		CacheRoutingProb:     0.5,
		EvictionIntervalSecs: 60,
		MaxTreeSize:          100_000,
		EnableFairness:       false,
		FairnessFillSize:     1000,
	}
}

func (o CacheAwareOptions) validate() error {
	if o.CacheThreshold < 0 || o.CacheThreshold > 1 {
		return fmt.Errorf("router: cache_threshold must be in [0,1], got %v", o.CacheThreshold)
	}
	if o.CacheRoutingProb < 0 || o.CacheRoutingProb > 1 {
		return fmt.Errorf("router: cache_routing_prob must be in [0,1], got %v", o.CacheRoutingProb)
	}
	if o.EvictionIntervalSecs < 1 {
		return fmt.Errorf("router: eviction_interval_secs must be >= 1, got %d", o.EvictionIntervalSecs)
	}
	if o.MaxTreeSize < 1 {
		return fmt.Errorf("router: max_tree_size must be >= 1, got %d", o.MaxTreeSize)
	}
	if o.FairnessFillSize < 1 {
		return fmt.Errorf("router: fairness_fill_size must be >= 1, got %d", o.FairnessFillSize)
	}
	return nil
}
