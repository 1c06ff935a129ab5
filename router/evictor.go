package router

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Evictor is the background eviction task: every interval, it acquires
// the tree, runs EvictTenantData, and logs the processed-counts snapshot.
// It is cancellable via context, wired to Router.Close, so a Router's
// shutdown always stops its eviction goroutine.
type Evictor struct {
	tree        *PrefixTree
	counters    *Counters
	interval    time.Duration
	maxTreeSize int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEvictor builds an Evictor. Call Start to begin the periodic loop.
func NewEvictor(tree *PrefixTree, counters *Counters, intervalSecs, maxTreeSize uint) *Evictor {
	return &Evictor{
		tree:        tree,
		counters:    counters,
		interval:    time.Duration(intervalSecs) * time.Second,
		maxTreeSize: int(maxTreeSize),
	}
}

// Start launches the eviction loop in its own goroutine.
func (e *Evictor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)
}

func (e *Evictor) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := e.tree.EvictTenantData(e.maxTreeSize)
			if removed > 0 {
				logrus.Infof("evictor: removed %d node(s), tree size now %d", removed, e.tree.Size())
			}
			logrus.Infof("evictor: processed queue: %v", e.counters.Processed())
		}
	}
}

// Stop cancels the eviction loop and waits for it to exit.
func (e *Evictor) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}
