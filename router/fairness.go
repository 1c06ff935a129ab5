package router

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// maxRefillAttempts bounds the refill-and-retry loop in Select, so a user
// whose credit never recovers still terminates in bounded time instead of
// looping forever.
const maxRefillAttempts = 2

// Fairness is the per-(user, worker) credit accountant. It prevents one
// user from monopolizing a worker's prefix cache via repeated
// prefix-heavy requests. Safe for concurrent use.
//
// The user->credits map grows without bound as new user IDs are seen and
// is never evicted; see DESIGN.md for why that's left unresolved here.
type Fairness struct {
	mu       sync.Mutex
	credits  map[string]map[string]int
	fillSize int
}

// NewFairness builds an accountant with the given refill size. Rows are
// created lazily on first sight of a user.
func NewFairness(fillSize int) *Fairness {
	if fillSize < 1 {
		fillSize = 1
	}
	return &Fairness{
		credits:  make(map[string]map[string]int),
		fillSize: fillSize,
	}
}

// rankedWorker pairs a worker URL with its prefix-match length, used to
// sort candidates by longest match first before applying credit rules.
type rankedWorker struct {
	worker string
	prefix int
}

// Select picks a worker for (userID, textLen) from ranked, the caller's
// prefix-match ranking (descending prefix length, ties already broken
// deterministically by the caller); Select only consults it in order.
// workers is the router's fixed, originally-configured worker list,
// consulted only for the degenerate fallback: the first worker in the
// configured list, when nothing had sufficient credit after refilling.
func (f *Fairness) Select(userID string, textLen int, ranked []rankedWorker, workers []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.credits[userID]
	if !ok {
		row = make(map[string]int, len(ranked))
		for _, rw := range ranked {
			row[rw.worker] = f.fillSize
		}
		f.credits[userID] = row
		logrus.Debugf("fairness: new user %q initialized with fill size %d across %d workers", userID, f.fillSize, len(row))
	}

	for attempt := 0; attempt <= maxRefillAttempts; attempt++ {
		for _, rw := range ranked {
			credit, ok := row[rw.worker]
			if !ok {
				continue
			}
			if credit-textLen > 0 {
				newCredit := credit - textLen
				if newCredit < 0 {
					newCredit = 0
				}
				row[rw.worker] = newCredit
				logrus.Debugf("fairness: user=%q worker=%q prefix_len=%d prev_credit=%d deduction=%d new_credit=%d",
					userID, rw.worker, rw.prefix, credit, textLen, newCredit)
				logrus.Debugf("fairness: user=%q credits now %v", userID, row)
				return rw.worker
			}
		}
		if attempt == maxRefillAttempts {
			break
		}
		for worker := range row {
			row[worker] += f.fillSize
		}
		logrus.Debugf("fairness: user=%q exhausted all workers, refilled by %d", userID, f.fillSize)
	}

	var fallback string
	if len(workers) > 0 {
		fallback = workers[0]
	}
	logrus.Warnf("fairness: user=%q no worker had sufficient credit after refill, falling back to %q", userID, fallback)
	return fallback
}
