package router

import "github.com/sirupsen/logrus"

// Router ties together the shared mutable state (prefix tree, pending
// counters) and a Policy. It is the entry point a Dispatcher talks to.
type Router struct {
	workers  []string
	kind     PolicyKind
	policy   Policy
	counters *Counters
	tree     *PrefixTree // nil unless kind == CacheAware
	evictor  *Evictor    // nil unless kind == CacheAware
}

// NewRoundRobinRouter builds a Router using the Round-Robin policy.
func NewRoundRobinRouter(workers []string) (*Router, error) {
	return newRouter(RoundRobin, workers, CacheAwareOptions{}, 0)
}

// NewRandomRouter builds a Router using the Random policy, seeded for
// reproducibility.
func NewRandomRouter(workers []string, seed int64) (*Router, error) {
	return newRouter(Random, workers, CacheAwareOptions{}, seed)
}

// NewCacheAwareRouter builds a Router using the Cache-Aware policy and
// starts its background evictor. Call Close to stop the evictor.
func NewCacheAwareRouter(workers []string, opts CacheAwareOptions, seed int64) (*Router, error) {
	return newRouter(CacheAware, workers, opts, seed)
}

func newRouter(kind PolicyKind, workers []string, opts CacheAwareOptions, seed int64) (*Router, error) {
	counters := NewCounters(workers)

	var tree *PrefixTree
	if kind == CacheAware {
		tree = NewPrefixTree(workers)
	}

	policy, err := newPolicy(kind, workers, tree, counters, opts, seed)
	if err != nil {
		return nil, err
	}

	r := &Router{
		workers:  workers,
		kind:     kind,
		policy:   policy,
		counters: counters,
		tree:     tree,
	}

	if kind == CacheAware {
		r.evictor = NewEvictor(tree, counters, opts.EvictionIntervalSecs, opts.MaxTreeSize)
		r.evictor.Start()
	}

	logrus.Infof("router: constructed policy=%s workers=%d", kind, len(workers))
	return r, nil
}

// Route selects a worker for (text, userID) and records the dispatch in
// the pending counters. processed[w] equals the number of dispatches
// selecting w because every successful Route call — regardless of
// policy — increments Counters exactly once.
func (r *Router) Route(text, userID string) (string, error) {
	worker, err := r.policy.Route(text, userID)
	if err != nil {
		return "", err
	}
	r.counters.Dispatch(worker)
	return worker, nil
}

// DecRunning releases one pending slot for worker, called by Dispatcher on
// every response-completion path.
func (r *Router) DecRunning(worker string) {
	r.counters.DecRunning(worker)
}

// Workers returns the router's fixed worker list.
func (r *Router) Workers() []string {
	return r.workers
}

// Kind reports which policy this Router was constructed with.
func (r *Router) Kind() PolicyKind {
	return r.kind
}

// Running returns a snapshot of in-flight counts, keyed by worker.
func (r *Router) Running() map[string]int {
	return r.counters.Running()
}

// Processed returns a snapshot of cumulative dispatch counts, keyed by
// worker.
func (r *Router) Processed() map[string]int {
	return r.counters.Processed()
}

// TreeSize reports the prefix tree's node count, or 0 for non-cache-aware
// policies.
func (r *Router) TreeSize() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.Size()
}

// Close stops the background evictor, if one is running. Safe to call on
// a Router without one.
func (r *Router) Close() {
	if r.evictor != nil {
		r.evictor.Stop()
	}
}
