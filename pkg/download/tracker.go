package download

import (
	"context"
	"sort"
	"sync"

	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Tracker is the registry of in-flight transfers. It is safe for concurrent
// use and the lock is only held for map operations.
type Tracker struct {
	mu        sync.Mutex
	transfers map[string]*transfer
}

// transfer is the registry entry of one running Start call. Handles are
// compared by identity so a finished transfer never touches an entry that a
// newer transfer registered under the same id.
type transfer struct {
	id     string
	state  model.DownloadProgress
	cancel context.CancelFunc
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{transfers: make(map[string]*transfer)}
}

func (t *Tracker) register(state model.DownloadProgress, cancel context.CancelFunc) (*transfer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.transfers[state.TrainerID]; ok {
		return nil, &errors.Error{Kind: errors.Download, Op: "register " + state.TrainerID, Err: errors.ErrTransferActive}
	}
	h := &transfer{id: state.TrainerID, state: state, cancel: cancel}
	t.transfers[h.id] = h
	return h, nil
}

// update stores a new snapshot for h. It reports false when h is no longer
// registered, for example after Cancel or ClearAll.
func (t *Tracker) update(h *transfer, state model.DownloadProgress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.transfers[h.id] != h {
		return false
	}
	h.state = state
	return true
}

func (t *Tracker) remove(h *transfer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.transfers[h.id] == h {
		delete(t.transfers, h.id)
	}
}

// List returns a snapshot of all registered transfers ordered by id.
func (t *Tracker) List() []model.DownloadProgress {
	t.mu.Lock()
	out := make([]model.DownloadProgress, 0, len(t.transfers))
	for _, h := range t.transfers {
		out = append(out, h.state)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TrainerID < out[j].TrainerID })
	return out
}

// Get returns the current snapshot of one transfer.
func (t *Tracker) Get(id string) (model.DownloadProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.transfers[id]
	if !ok {
		return model.DownloadProgress{}, false
	}
	return h.state, true
}

// Cancel removes the transfer and aborts its stream. It reports whether the
// id was registered.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	h, ok := t.transfers[id]
	if ok {
		delete(t.transfers, id)
	}
	t.mu.Unlock()

	if ok && h.cancel != nil {
		h.cancel()
	}
	return ok
}

// ClearAll forgets every registered transfer and returns how many there were.
// Running transfers are not aborted.
func (t *Tracker) ClearAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.transfers)
	t.transfers = make(map[string]*transfer)
	return n
}

// Len returns the number of registered transfers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.transfers)
}
