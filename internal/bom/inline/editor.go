package inline

import (
	"context"
	"sync"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

// State of an Editor.
type State int

const (
	// Clean means the local item matches the last committed server state.
	Clean State = iota
	// Dirty means the item has local edits not yet accepted by the server.
	Dirty
)

func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// Committer persists a line item update.
type Committer interface {
	UpdatePart(ctx context.Context, req dto.UpdateBomPartRequest) (*dto.LineItemView, error)
}

// Editor tracks the edits of one line item between commits.
// It is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	projectID int64
	item      domain.LineItem
	state     State
	revision  uint64
	lastErr   error
}

// NewEditor starts a clean editor on item.
func NewEditor(projectID int64, item domain.LineItem) *Editor {
	return &Editor{projectID: projectID, item: item}
}

// Item returns the current local snapshot.
func (e *Editor) Item() domain.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item
}

// State returns Clean or Dirty.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error of the last failed commit, cleared by a successful one.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Edit applies one field edit. A rejected edit leaves the editor unchanged.
func (e *Editor) Edit(field Field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := ApplyInlineEdit(e.item, field, value)
	if err != nil {
		return err
	}
	e.item = next
	e.state = Dirty
	e.revision++
	return nil
}

// Commit sends the local snapshot to the server. Committing a clean editor is
// a no-op. On failure the edit is kept, the editor stays dirty and the error is
// returned; there is no retry. Edits made while the commit was in flight keep
// the editor dirty after it succeeds.
func (e *Editor) Commit(ctx context.Context, c Committer) error {
	e.mu.Lock()
	if e.state == Clean {
		e.mu.Unlock()
		return nil
	}
	req := CommitRequest(e.projectID, e.item)
	revision := e.revision
	e.mu.Unlock()

	saved, err := c.UpdatePart(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = err
		return err
	}
	e.lastErr = nil
	if e.revision != revision {
		return nil
	}
	if saved != nil {
		e.item = saved.ToDomain()
	}
	e.state = Clean
	return nil
}
