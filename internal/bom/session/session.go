// Package session models one open BOM page: the server snapshot, its
// producibility and the inline editors of its line items.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/replaysMike/Binner-sub003/internal/bom/client"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/inline"
	"github.com/replaysMike/Binner-sub003/internal/bom/producibility"
)

var (
	// ErrReadOnly is returned by mutations after the project failed to load.
	ErrReadOnly = errors.New("project not found, session is read-only")
	// ErrNotLoaded is returned before the first successful Load.
	ErrNotLoaded = errors.New("no project loaded")
	// ErrUnknownItem is returned for a line item id that is not in the snapshot.
	ErrUnknownItem = errors.New("unknown line item")
)

// API is the part of the BOM API a session drives.
type API interface {
	inline.Committer
	GetBom(ctx context.Context, name string) (*dto.BomResponse, error)
	AddPart(ctx context.Context, req dto.AddBomPartRequest) (*dto.LineItemView, error)
	DeleteParts(ctx context.Context, projectID int64, ids []int64) (int64, error)
	MoveParts(ctx context.Context, projectID int64, ids []int64, pcbID int64) (int64, error)
	AddPcb(ctx context.Context, req dto.AddPcbRequest) (*dto.PcbView, error)
	DeletePcb(ctx context.Context, projectID, pcbID int64) error
	Produce(ctx context.Context, req dto.ProduceBomRequest) (*dto.ProduceBomResponse, error)
	Download(ctx context.Context, projectID int64, format string) (*client.Download, error)
}

// Session is safe for concurrent use. Network calls are made without holding
// its lock, so mutations may race each other; the last reload wins.
type Session struct {
	api API

	mu       sync.Mutex
	name     string
	snapshot *dto.BomResponse
	result   producibility.BomResult
	readOnly bool
	editors  map[int64]*inline.Editor
}

// New creates an empty session.
func New(api API) *Session {
	return &Session{api: api, editors: map[int64]*inline.Editor{}}
}

// Load fetches the named project. When it does not exist the session becomes
// read-only and the not-found error is returned.
func (s *Session) Load(ctx context.Context, name string) error {
	snapshot, err := s.api.GetBom(ctx, name)
	if err != nil {
		if client.IsNotFound(err) {
			s.mu.Lock()
			s.name = name
			s.snapshot = nil
			s.result = producibility.BomResult{}
			s.readOnly = true
			s.editors = map[int64]*inline.Editor{}
			s.mu.Unlock()
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.readOnly = false
	s.apply(snapshot)
	return nil
}

// Reload fetches the current project again.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	if name == "" {
		return ErrNotLoaded
	}
	return s.Load(ctx, name)
}

// apply replaces the snapshot and recomputes producibility from it. Editors
// holding uncommitted edits survive; every other editor restarts from the
// server's line item. Callers hold s.mu.
func (s *Session) apply(snapshot *dto.BomResponse) {
	s.snapshot = snapshot
	s.result = producibility.BomCount(snapshot.LineItems(), snapshot.DomainPcbs())

	editors := make(map[int64]*inline.Editor, len(snapshot.Parts))
	for _, p := range snapshot.Parts {
		id := p.ProjectPartAssignmentID
		if e, ok := s.editors[id]; ok && e.State() == inline.Dirty {
			editors[id] = e
			continue
		}
		editors[id] = inline.NewEditor(snapshot.ProjectID, p.ToDomain())
	}
	s.editors = editors
}

// Snapshot returns the last loaded snapshot, nil when none is loaded.
func (s *Session) Snapshot() *dto.BomResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Producibility returns the producibility of the last loaded snapshot.
func (s *Session) Producibility() producibility.BomResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// ReadOnly reports whether the last Load found no project.
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}

// projectID returns the loaded project id, or why mutations are refused.
func (s *Session) projectID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return 0, ErrReadOnly
	}
	if s.snapshot == nil {
		return 0, ErrNotLoaded
	}
	return s.snapshot.ProjectID, nil
}

// Editor returns the inline editor of a line item.
func (s *Session) Editor(itemID int64) (*inline.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editors[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, itemID)
	}
	return e, nil
}

// Edit applies an inline edit to a line item without sending it.
func (s *Session) Edit(itemID int64, field inline.Field, value string) error {
	if _, err := s.projectID(); err != nil {
		return err
	}
	e, err := s.Editor(itemID)
	if err != nil {
		return err
	}
	return e.Edit(field, value)
}

// Commit sends a line item's edits and reloads the snapshot. A failed commit
// leaves the item dirty and returns the server's error.
func (s *Session) Commit(ctx context.Context, itemID int64) error {
	if _, err := s.projectID(); err != nil {
		return err
	}
	e, err := s.Editor(itemID)
	if err != nil {
		return err
	}
	if err := e.Commit(ctx, s.api); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// AddPart adds a line item to the loaded project.
func (s *Session) AddPart(ctx context.Context, req dto.AddBomPartRequest) error {
	projectID, err := s.projectID()
	if err != nil {
		return err
	}
	req.ProjectID = projectID
	if _, err := s.api.AddPart(ctx, req); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// DeleteParts deletes the listed line items.
func (s *Session) DeleteParts(ctx context.Context, ids []int64) error {
	projectID, err := s.projectID()
	if err != nil {
		return err
	}
	if _, err := s.api.DeleteParts(ctx, projectID, ids); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// MoveParts reassigns line items to pcbID, 0 for unassociated.
func (s *Session) MoveParts(ctx context.Context, ids []int64, pcbID int64) error {
	projectID, err := s.projectID()
	if err != nil {
		return err
	}
	if _, err := s.api.MoveParts(ctx, projectID, ids, pcbID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// AddPcb adds a PCB to the loaded project.
func (s *Session) AddPcb(ctx context.Context, req dto.AddPcbRequest) error {
	projectID, err := s.projectID()
	if err != nil {
		return err
	}
	req.ProjectID = projectID
	if _, err := s.api.AddPcb(ctx, req); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// DeletePcb deletes a PCB; its line items become unassociated.
func (s *Session) DeletePcb(ctx context.Context, pcbID int64) error {
	projectID, err := s.projectID()
	if err != nil {
		return err
	}
	if err := s.api.DeletePcb(ctx, projectID, pcbID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// Produce consumes stock for a production run and adopts the snapshot the
// server returns.
func (s *Session) Produce(ctx context.Context, req dto.ProduceBomRequest) ([]dto.ProducedPcb, error) {
	projectID, err := s.projectID()
	if err != nil {
		return nil, err
	}
	req.ProjectID = projectID
	resp, err := s.api.Produce(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.snapshot != nil && s.snapshot.ProjectID == resp.Bom.ProjectID {
		bom := resp.Bom
		s.apply(&bom)
	}
	s.mu.Unlock()
	return resp.Produced, nil
}

// Download exports the loaded project.
func (s *Session) Download(ctx context.Context, format string) (*client.Download, error) {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()
	if snapshot == nil {
		return nil, ErrNotLoaded
	}
	return s.api.Download(ctx, snapshot.ProjectID, format)
}

// Watcher streams change notifications; *client.Client implements it.
type Watcher interface {
	Watch(ctx context.Context, fn func(events.Change)) error
}

// Follow reloads the session whenever w reports a change to the loaded
// project or to inventory parts, and calls onReload with the reload result.
// It blocks until ctx is done or the stream ends.
func (s *Session) Follow(ctx context.Context, w Watcher, onReload func(error)) error {
	if _, err := s.projectID(); err != nil {
		return err
	}
	return w.Watch(ctx, func(change events.Change) {
		projectID, err := s.projectID()
		if err != nil {
			return
		}
		if change.ProjectID != 0 && change.ProjectID != projectID {
			return
		}
		err = s.Reload(ctx)
		if onReload != nil {
			onReload(err)
		}
	})
}
