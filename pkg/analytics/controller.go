package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/events"
	"github.com/helmcode/riskctl/pkg/model"
	"github.com/robfig/cron/v3"
)

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the controller state handed to renderers. Summary is only
// set in PhaseReady, Err only in PhaseError.
type Snapshot struct {
	Phase       Phase
	Summary     *model.AnalyticsSummary
	Err         error
	LastUpdated time.Time
}

// FetchFunc loads one aggregate snapshot from the backend.
type FetchFunc func(ctx context.Context) (*model.AnalyticsSummary, error)

// SummaryController keeps an analytics summary fresh: it fetches when
// mounted, on every Refresh, and on every prediction published on the bus.
// Signals are not debounced; each one starts its own fetch.
type SummaryController struct {
	fetch FetchFunc
	bus   *events.Bus
	now   func() time.Time

	mu          sync.Mutex
	state       Snapshot
	mounted     bool
	seq         uint64
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	listeners   []func(Snapshot)

	inflight sync.WaitGroup
}

func NewSummaryController(fetch FetchFunc, bus *events.Bus) *SummaryController {
	return &SummaryController{
		fetch: fetch,
		bus:   bus,
		now:   time.Now,
		state: Snapshot{Phase: PhaseLoading},
	}
}

// OnChange registers fn to be called after every state transition.
// Register before Mount to see the first Loading state.
func (c *SummaryController) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Mount subscribes to the bus and starts the first fetch. A second Mount
// without Unmount is a no-op.
func (c *SummaryController) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	if c.bus != nil {
		c.unsubscribe = c.bus.Subscribe(events.Isolate("analytics-summary", func(evt events.PredictionCreated) {
			c.refresh("prediction created: " + evt.StudentID)
		}))
	}
	c.mu.Unlock()

	c.refresh("mount")
}

// Unmount drops the subscription. Fetches still in flight are cancelled
// and whatever they return is discarded.
func (c *SummaryController) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.mounted = false
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.cancel()
}

// Refresh re-enters Loading and fetches again.
func (c *SummaryController) Refresh() {
	c.refresh("manual")
}

// Retry is the affordance offered from the Error state.
func (c *SummaryController) Retry() {
	c.refresh("retry")
}

func (c *SummaryController) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every fetch started so far has finished.
func (c *SummaryController) Wait() {
	c.inflight.Wait()
}

func (c *SummaryController) refresh(reason string) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.state = Snapshot{Phase: PhaseLoading}
	snap, listeners := c.state, c.snapshotListeners()
	ctx := c.ctx
	c.inflight.Add(1)
	c.mu.Unlock()

	log.WithFields(log.Fields{"reason": reason, "cycle": seq}).Debug("analytics summary loading")
	notify(listeners, snap)

	go func() {
		defer c.inflight.Done()
		summary, err := c.fetch(ctx)
		if err == nil && summary == nil {
			err = errors.New("empty analytics summary")
		}
		c.apply(seq, summary, err)
	}()
}

func (c *SummaryController) apply(seq uint64, summary *model.AnalyticsSummary, err error) {
	c.mu.Lock()
	if !c.mounted || seq != c.seq {
		c.mu.Unlock()
		log.WithField("cycle", seq).Debug("discarding stale analytics response")
		return
	}
	if err != nil {
		c.state = Snapshot{Phase: PhaseError, Err: err}
	} else {
		c.state = Snapshot{Phase: PhaseReady, Summary: summary, LastUpdated: c.now()}
	}
	snap, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("analytics summary unavailable")
	} else {
		log.WithField("cycle", seq).Debug("analytics summary ready")
	}
	notify(listeners, snap)
}

func (c *SummaryController) snapshotListeners() []func(Snapshot) {
	out := make([]func(Snapshot), len(c.listeners))
	copy(out, c.listeners)
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// Schedule refreshes the controller on a cron spec such as "@every 30s".
// The caller starts and stops the returned scheduler.
func (c *SummaryController) Schedule(spec string) (*cron.Cron, error) {
	sched := cron.New()
	if _, err := sched.AddFunc(spec, func() { c.refresh("schedule") }); err != nil {
		return nil, err
	}
	return sched, nil
}
