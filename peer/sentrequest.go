package peer

import (
	"container/heap"
	"sync"
	"time"

	"freediameterd/diammsg"
	"freediameterd/metrics"
)

// sentRequestEntry is one in-flight request: the "sent-request
// table": {original message, restore-hbh, added_on timestamp, optional
// expiry deadline}.
type sentRequestEntry struct {
	hbhId      uint32
	message    *diammsg.DiameterMessage
	restoreHbh uint32
	addedOn    time.Time
	deadline   time.Time // zero if no timeout was requested
	rchan      chan interface{}
	metricKey  metrics.PeerDiameterMetricKey
	index      int // heap index, maintained by container/heap
}

// deadlineHeap orders entries by expiry deadline, the table's "secondary
// ordering by expiry deadline".
type deadlineHeap []*sentRequestEntry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *deadlineHeap) Push(x interface{}) {
	e := x.(*sentRequestEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// SentRequestTable is the per-peer hbh-indexed map of in-flight requests,
// An ordered mapping hbh -> entry, with a background
// expiry thread that sleeps until the earliest deadline (guarded by a
// mutex and woken early through a buffered wake channel, started lazily
// and stopped once the deadline list drains).
type SentRequestTable struct {
	mu       sync.Mutex
	byHbh    map[uint32]*sentRequestEntry
	deadline deadlineHeap
	wake     chan struct{}
	running  bool
	stopped  chan struct{}

	// OnTimeout is invoked from the expiry goroutine (NOT the peer's
	// event loop) when a request's deadline passes with no answer;
	// the peer wires this to re-post a CancelRequestMsg to itself.
	OnTimeout func(entry *sentRequestEntry)
}

func NewSentRequestTable() *SentRequestTable {
	return &SentRequestTable{
		byHbh: make(map[uint32]*sentRequestEntry),
		wake:  make(chan struct{}, 1),
	}
}

// Put inserts a new outstanding request keyed by its (peer-assigned)
// hop-by-hop id. Invariant: the
// caller must not reuse an hbh id still present in the table.
func (t *SentRequestTable) Put(hbhId uint32, msg *diammsg.DiameterMessage, restoreHbh uint32, timeout time.Duration, rchan chan interface{}, key metrics.PeerDiameterMetricKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &sentRequestEntry{
		hbhId:      hbhId,
		message:    msg,
		restoreHbh: restoreHbh,
		addedOn:    time.Now(),
		rchan:      rchan,
		metricKey:  key,
		index:      -1,
	}
	if timeout > 0 {
		e.deadline = time.Now().Add(timeout)
		heap.Push(&t.deadline, e)
		t.ensureExpiryThread()
		t.nudge()
	}
	t.byHbh[hbhId] = e
}

// Get looks up (without removing) the entry for an hbh id.
func (t *SentRequestTable) Get(hbhId uint32) (*sentRequestEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHbh[hbhId]
	return e, ok
}

// Remove deletes the entry for an hbh id (answer arrived, or cancelled),
// removing it from both the hbh map and, if present, the deadline heap.
func (t *SentRequestTable) Remove(hbhId uint32) (*sentRequestEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byHbh[hbhId]
	if !ok {
		return nil, false
	}
	delete(t.byHbh, hbhId)
	if e.index >= 0 {
		heap.Remove(&t.deadline, e.index)
	}
	return e, true
}

// Len reports how many requests are currently outstanding.
func (t *SentRequestTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byHbh)
}

// Drain removes and returns every outstanding entry, used by failover
// when the connection dies and by
// final peer teardown.
func (t *SentRequestTable) Drain() []*sentRequestEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*sentRequestEntry, 0, len(t.byHbh))
	for _, e := range t.byHbh {
		out = append(out, e)
	}
	t.byHbh = make(map[uint32]*sentRequestEntry)
	t.deadline = nil
	return out
}

func (t *SentRequestTable) nudge() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// ensureExpiryThread starts the background expiry goroutine the first
// time a timed-out request is added; it exits on its own once the
// deadline list empties.
func (t *SentRequestTable) ensureExpiryThread() {
	if t.running {
		return
	}
	t.running = true
	t.stopped = make(chan struct{})
	go t.expiryLoop()
}

func (t *SentRequestTable) expiryLoop() {
	defer close(t.stopped)

	for {
		t.mu.Lock()
		if len(t.deadline) == 0 {
			t.running = false
			t.mu.Unlock()
			return
		}
		next := t.deadline[0]
		wait := time.Until(next.deadline)
		t.mu.Unlock()

		if wait <= 0 {
			t.fireExpired()
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			t.fireExpired()
		case <-t.wake:
			timer.Stop()
		}
	}
}

func (t *SentRequestTable) fireExpired() {
	now := time.Now()
	for {
		t.mu.Lock()
		if len(t.deadline) == 0 || t.deadline[0].deadline.After(now) {
			t.mu.Unlock()
			return
		}
		e := heap.Pop(&t.deadline).(*sentRequestEntry)
		t.mu.Unlock()

		if t.OnTimeout != nil {
			t.OnTimeout(e)
		}
	}
}
