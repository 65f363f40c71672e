// Package coursesync keeps the local course snapshot in step with the
// remote courseGrading pallet. It chains two storage subscriptions: one on
// the aggregate course count, whose pushes trigger a full re-enumeration of
// the key space, and one resolving the current identifier set to full
// records. Derived state is replaced wholesale on every push; nothing is
// accumulated or diffed across pushes.
package coursesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/adrianncovaci/uni-chain/internal/chain"
	"github.com/adrianncovaci/uni-chain/internal/logger"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// Ledger is the subscription/query surface the syncer consumes.
// *chain.Client implements it; tests substitute fakes.
type Ledger interface {
	SubscribeValue(ctx context.Context, module, item string, cb func(json.RawMessage)) (chain.Unsubscribe, error)
	EntryPairs(ctx context.Context, module, mapName string) ([]chain.Pair, error)
	SubscribeEntries(ctx context.Context, module, mapName string, args []string, cb func([]chain.Option[json.RawMessage])) (chain.Unsubscribe, error)
}

// Snapshots receives each resolved course set. *courses.Store implements it.
type Snapshots interface {
	ReplaceAll(records []types.CourseRecord) error
}

// Syncer owns the derived course state: the current identifier set and the
// resolved records for it. All writes to both happen on the syncer's own
// goroutines; no other component mutates them.
type Syncer struct {
	ledger   Ledger
	store    Snapshots
	log      *logger.Logger
	onStatus func(string)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	ids         []string
	countToken  *setupToken
	recordToken *setupToken

	refreshCh chan struct{}
	wg        sync.WaitGroup
}

// New creates a Syncer. onStatus receives failure text for the dashboard's
// single status line; it may be nil.
func New(ledger Ledger, store Snapshots, log *logger.Logger, onStatus func(string)) *Syncer {
	s := &Syncer{
		ledger:    ledger,
		store:     store,
		log:       log,
		onStatus:  onStatus,
		refreshCh: make(chan struct{}, 1),
	}
	// Start replaces this with a cancellable context; until then refresh
	// calls from tests run against the background context.
	s.ctx = context.Background()
	return s
}

// Start opens the aggregate count subscription and performs an initial
// enumeration. Teardown is always safe, even if Stop is called before the
// asynchronous subscription setup resolves.
func (s *Syncer) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.refreshLoop()

	token := newSetupToken()
	s.mu.Lock()
	s.countToken = token
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		unsub, err := s.ledger.SubscribeValue(s.ctx, types.PalletName, types.CourseCountItem, func(json.RawMessage) {
			s.requestRefresh()
		})
		if err != nil {
			s.report(fmt.Sprintf("Course count subscription failed: %v", err))
			return
		}
		token.commit(unsub)
	}()

	// Initial load; the count subscription only signals future changes.
	s.requestRefresh()
}

// Stop releases both subscriptions and waits for in-flight work to finish.
// Safe to call without a prior Start.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	countToken := s.countToken
	recordToken := s.recordToken
	s.mu.Unlock()
	if countToken != nil {
		countToken.cancel()
	}
	if recordToken != nil {
		recordToken.cancel()
	}
	s.wg.Wait()
}

// IDs returns a copy of the most recently enumerated identifier set.
func (s *Syncer) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// requestRefresh coalesces refresh triggers. It never blocks, so it is safe
// to call from the RPC client's read loop.
func (s *Syncer) requestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

func (s *Syncer) refreshLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.refreshCh:
			s.refresh()
		}
	}
}

// refresh re-enumerates the full key space and replaces the identifier set
// with the result. No diffing against the previous set.
func (s *Syncer) refresh() {
	pairs, err := s.ledger.EntryPairs(s.ctx, types.PalletName, types.CoursesMap)
	if err != nil {
		s.report(fmt.Sprintf("Course enumeration failed: %v", err))
		return
	}

	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		raw, ok := p.Record.Value()
		if !ok {
			// removed between pushes; it simply is not part of this set
			continue
		}
		dna, err := chain.DecodeDna(raw)
		if err != nil {
			s.log.Warning(fmt.Sprintf("Skipping unreadable entry %s: %v", p.Key, err))
			continue
		}
		ids = append(ids, dna)
	}

	s.setIDs(ids)
}

// setIDs replaces the identifier set, tears down the previous record
// subscription, and opens a new one scoped to exactly the new set. This
// happens even when the set is unchanged; wholesale replacement keeps the
// derived state trivially consistent.
func (s *Syncer) setIDs(ids []string) {
	s.mu.Lock()
	s.ids = ids
	if s.recordToken != nil {
		s.recordToken.cancel()
	}
	token := newSetupToken()
	s.recordToken = token
	s.mu.Unlock()

	if len(ids) == 0 {
		if err := s.store.ReplaceAll(nil); err != nil {
			s.log.Error(fmt.Sprintf("Failed to clear course snapshot: %v", err))
		}
		return
	}

	unsub, err := s.ledger.SubscribeEntries(s.ctx, types.PalletName, types.CoursesMap, ids, func(opts []chain.Option[json.RawMessage]) {
		s.applyRecords(ids, opts)
	})
	if err != nil {
		s.report(fmt.Sprintf("Course record subscription failed: %v", err))
		return
	}
	token.commit(unsub)
}

// applyRecords evaluates a push against the identifier set that was active
// when its subscription was opened. A push from a superseded subscription
// can still land inside that subscription's shutdown window; the next push
// from the live one replaces it wholesale, so the inconsistency is bounded.
func (s *Syncer) applyRecords(ids []string, opts []chain.Option[json.RawMessage]) {
	records := make([]types.CourseRecord, 0, len(ids))
	for i, opt := range opts {
		if i >= len(ids) {
			break
		}
		raw, ok := opt.Value()
		if !ok {
			// removed between enumeration and resolution; dropped, not fatal
			continue
		}
		rec, err := chain.DecodeCourse(raw)
		if err != nil {
			s.log.Warning(fmt.Sprintf("Skipping unreadable course %s: %v", ids[i], err))
			continue
		}
		records = append(records, rec)
	}

	if err := s.store.ReplaceAll(records); err != nil {
		s.log.Error(fmt.Sprintf("Failed to persist course snapshot: %v", err))
		return
	}
	s.log.Info(fmt.Sprintf("Synced %d of %d course(s)", len(records), len(ids)))
}

func (s *Syncer) report(text string) {
	s.log.Error(text)
	if s.onStatus != nil {
		s.onStatus(text)
	}
}
