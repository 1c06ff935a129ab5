// Package router implements a cache-aware load-balancing proxy that sits in
// front of a fleet of inference-worker HTTP backends.
//
// # Reading Guide
//
// Start with these files to understand the routing core:
//   - config.go: construction options for each policy kind
//   - policy.go: the three routing policies (round-robin, random, cache-aware)
//   - prefixtree.go: the approximate per-worker prefix tree cache-aware reads
//   - dispatcher.go: per-request text extraction, upstream proxying, streaming
//
// # Architecture
//
// Router owns the shared mutable state (prefix tree, pending counters,
// fairness accountant) and a Policy that decides, per request, which worker
// should serve it. Dispatcher reads a request, asks Router for a worker, and
// proxies the request/response pair while keeping the pending counters
// balanced.
//
// # Concurrency
//
// Lock order, enforced throughout this package, is: tree -> counters ->
// fairness. No lock is ever held across upstream I/O.
package router
