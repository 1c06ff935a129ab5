package router

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// ErrNoWorkers is returned by a policy when the configured worker list is
// empty. Constructing a zero-worker router is valid, but every dispatch
// against it fails.
var ErrNoWorkers = errors.New("router: no workers configured")

// Policy selects a worker for a request. Implementations own whatever
// side effects their selection requires (cache-aware updates the prefix
// tree); Counters bookkeeping is applied uniformly by Router after Route
// returns, regardless of policy.
type Policy interface {
	Route(text, userID string) (string, error)
}

// roundRobinPolicy implements Round-Robin: an atomically incremented
// index modulo the worker count.
type roundRobinPolicy struct {
	workers []string
	next    uint64
}

func newRoundRobinPolicy(workers []string) *roundRobinPolicy {
	return &roundRobinPolicy{workers: workers}
}

func (p *roundRobinPolicy) Route(_, _ string) (string, error) {
	if len(p.workers) == 0 {
		return "", ErrNoWorkers
	}
	idx := atomic.AddUint64(&p.next, 1) - 1
	return p.workers[idx%uint64(len(p.workers))], nil
}

// randomPolicy implements Random: uniform selection among
// workers, using a per-policy seeded *rand.Rand rather than the shared
// global source, so two routers with the same seed pick identically.
type randomPolicy struct {
	workers []string
	mu      sync.Mutex
	rng     *rand.Rand
}

func newRandomPolicy(workers []string, seed int64) *randomPolicy {
	return &randomPolicy{
		workers: workers,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (p *randomPolicy) Route(_, _ string) (string, error) {
	if len(p.workers) == 0 {
		return "", ErrNoWorkers
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers[p.rng.Intn(len(p.workers))], nil
}

// cacheAwarePolicy implements the composite Cache-Aware policy.
type cacheAwarePolicy struct {
	workers  []string
	tree     *PrefixTree
	counters *Counters
	fairness *Fairness // nil unless opts.EnableFairness
	opts     CacheAwareOptions
	mu       sync.Mutex
	rng      *rand.Rand
}

func newCacheAwarePolicy(workers []string, tree *PrefixTree, counters *Counters, opts CacheAwareOptions, seed int64) *cacheAwarePolicy {
	p := &cacheAwarePolicy{
		workers:  workers,
		tree:     tree,
		counters: counters,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
	}
	if opts.EnableFairness {
		p.fairness = NewFairness(int(opts.FairnessFillSize))
	}
	return p
}

func (p *cacheAwarePolicy) Route(text, userID string) (string, error) {
	if len(p.workers) == 0 {
		return "", ErrNoWorkers
	}

	var selected string
	if p.opts.EnableFairness {
		selected = p.routeFairness(text, userID)
	} else {
		selected = p.routeMixed(text)
	}

	p.tree.Insert(text, selected)
	return selected, nil
}

// routeFairness computes each worker's prefix_match_tenant length, ranks
// descending (ties broken lexicographically by worker URL), and delegates
// to the Fairness Accountant.
func (p *cacheAwarePolicy) routeFairness(text, userID string) string {
	ranked := make([]rankedWorker, 0, len(p.workers))
	for _, w := range p.workers {
		prefix := p.tree.PrefixMatchTenant(text, w)
		ranked = append(ranked, rankedWorker{worker: w, prefix: utf8.RuneCountInString(prefix)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].prefix != ranked[j].prefix {
			return ranked[i].prefix > ranked[j].prefix
		}
		return ranked[i].worker < ranked[j].worker
	})

	textLen := utf8.RuneCountInString(text)
	return p.fairness.Select(userID, textLen, ranked, p.workers)
}

// routeMixed implements the probabilistic cache-routing / shortest-queue
// mix.
func (p *cacheAwarePolicy) routeMixed(text string) string {
	p.mu.Lock()
	sampled := p.rng.Float64()
	p.mu.Unlock()

	if sampled < p.opts.CacheRoutingProb {
		matched, worker := p.tree.PrefixMatch(text)
		textLen := utf8.RuneCountInString(text)
		rate := 0.0
		if textLen > 0 {
			rate = float64(utf8.RuneCountInString(matched)) / float64(textLen)
		}
		if rate > p.opts.CacheThreshold {
			logrus.Debugf("cache-aware: prefix match rate=%.3f > threshold=%.3f, routing to %q", rate, p.opts.CacheThreshold, worker)
			return worker
		}
		smallest := p.tree.SmallestTenant()
		logrus.Debugf("cache-aware: prefix match rate=%.3f <= threshold=%.3f, routing to smallest tenant %q", rate, p.opts.CacheThreshold, smallest)
		return smallest
	}

	return p.counters.ShortestQueue(p.workers)
}

// newPolicy builds a Policy of the given kind. CacheAware requires tree,
// counters, and opts; other kinds ignore them. seed seeds any internal RNG
// deterministically, primarily for tests.
func newPolicy(kind PolicyKind, workers []string, tree *PrefixTree, counters *Counters, opts CacheAwareOptions, seed int64) (Policy, error) {
	switch kind {
	case RoundRobin:
		return newRoundRobinPolicy(workers), nil
	case Random:
		return newRandomPolicy(workers, seed), nil
	case CacheAware:
		if err := opts.validate(); err != nil {
			return nil, err
		}
		return newCacheAwarePolicy(workers, tree, counters, opts, seed), nil
	default:
		return nil, fmt.Errorf("router: unknown policy kind %v", kind)
	}
}
