package coursesync

import (
	"sync"

	"github.com/adrianncovaci/uni-chain/internal/chain"
)

// setupToken makes teardown safe to call while an asynchronous subscribe is
// still in flight. The goroutine opening the subscription commits the
// unsubscribe handle once the open resolves; if cancel won the race, commit
// releases the handle immediately instead of leaking a live subscription.
type setupToken struct {
	mu        sync.Mutex
	cancelled bool
	unsub     chain.Unsubscribe
}

func newSetupToken() *setupToken {
	return &setupToken{}
}

// commit hands over the unsubscribe handle. It returns false when the token
// was cancelled first, in which case the handle has already been released
// and the caller must not treat the subscription as active.
func (t *setupToken) commit(unsub chain.Unsubscribe) bool {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		unsub()
		return false
	}
	t.unsub = unsub
	t.mu.Unlock()
	return true
}

// cancel tears the subscription down. Safe to call before commit, after
// commit, and more than once.
func (t *setupToken) cancel() {
	t.mu.Lock()
	t.cancelled = true
	unsub := t.unsub
	t.unsub = nil
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
