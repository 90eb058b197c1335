package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/ampcare/internal/attachments"
	"github.com/dmitrijs2005/ampcare/internal/codec"
	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/filex"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
)

// WriteResult describes a committed write.
type WriteResult struct {
	// Message is a copy of the record as stored.
	Message *models.Message
	Path    string
	// Changed is false when the operation was a no-op and nothing was
	// written.
	Changed bool
	// Downgraded reports a send without recipient that was kept as draft.
	Downgraded bool
}

// Reply is one conversation entry added by the current party.
type Reply struct {
	Initials string
	Text     string
	// Attachments are local files to attach with the reply.
	Attachments []string
}

// CreateOrUpdate persists m. A message without sender is authored by the
// current party. m itself is never modified; the stored version is
// returned in the result.
func (s *Store) CreateOrUpdate(ctx context.Context, m *models.Message, saveAsDraft bool) (WriteResult, error) {
	if m == nil {
		return WriteResult{}, errors.New("create or update: nil message")
	}
	var events []Event
	defer func() { s.subs.dispatch(events) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return WriteResult{}, common.ErrClosed
	}

	w := m.Clone()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.AuthoredOn.IsZero() {
		w.AuthoredOn = s.clock()
	}
	if w.Sender == "" {
		w.Sender, w.SenderName = s.party, s.partyName
	}
	prevStatus := models.StatusDraft
	if prev, ok := s.byID[w.ID]; ok {
		w.Path = prev.Path
		prevStatus = prev.Status
	}
	// reads, replies, resolution and archival have their own operations
	if w.Status != prevStatus && (prevStatus != models.StatusDraft || w.Status != models.StatusSent) {
		return WriteResult{}, fmt.Errorf("write %s: %w: cannot change status from %s to %s",
			w.ID, common.ErrGuardViolation, prevStatus, w.Status)
	}

	downgraded, err := w.PrepareSend(s.party, saveAsDraft)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", w.ID, err)
	}
	if downgraded {
		s.logger.Warn(ctx, "message has no recipient, kept as draft",
			"message_id", w.ID, "error", common.ErrGuardViolation)
	}

	res, err := s.commit(ctx, w, saveAsDraft || w.Status == models.StatusDraft)
	if err != nil {
		return WriteResult{}, err
	}
	res.Downgraded = downgraded
	events = append(events, upserted(w))
	return res, nil
}

// MarkRead records that viewer opened the message.
func (s *Store) MarkRead(ctx context.Context, id uuid.UUID, viewer string) (WriteResult, error) {
	return s.transition(ctx, id, func(m *models.Message) (bool, error) {
		return m.MarkRead(viewer)
	})
}

// MarkResolved closes the conversation on behalf of the current party.
func (s *Store) MarkResolved(ctx context.Context, id uuid.UUID) (WriteResult, error) {
	return s.transition(ctx, id, func(m *models.Message) (bool, error) {
		return true, m.Resolve(s.party)
	})
}

// Archive removes the message from party's active view.
func (s *Store) Archive(ctx context.Context, id uuid.UUID, party string) (WriteResult, error) {
	return s.transition(ctx, id, func(m *models.Message) (bool, error) {
		return m.Archive(party, s.clock())
	})
}

// Reply appends r to the conversation as the current party.
func (s *Store) Reply(ctx context.Context, id uuid.UUID, r Reply) (WriteResult, error) {
	return s.transition(ctx, id, func(m *models.Message) (bool, error) {
		if err := m.Reply(s.party, s.partyName, r.Initials, r.Text, s.clock()); err != nil {
			return false, err
		}
		m.Initials = r.Initials
		for _, p := range r.Attachments {
			m.Attach(p, s.party)
		}
		return true, nil
	})
}

// transition applies fn to a copy of the stored record and writes it when
// fn reports a change.
func (s *Store) transition(ctx context.Context, id uuid.UUID, fn func(*models.Message) (bool, error)) (WriteResult, error) {
	var events []Event
	defer func() { s.subs.dispatch(events) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return WriteResult{}, common.ErrClosed
	}

	cur, ok := s.byID[id]
	if !ok {
		return WriteResult{}, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	w := cur.Clone()
	changed, err := fn(w)
	if err != nil {
		return WriteResult{}, fmt.Errorf("message %s: %w", id, err)
	}
	if !changed {
		return WriteResult{Message: cur.Clone(), Path: cur.Path}, nil
	}

	res, err := s.commit(ctx, w, w.Status == models.StatusDraft)
	if err != nil {
		return WriteResult{}, err
	}
	events = append(events, upserted(w))
	return res, nil
}

// folderFor routes a message: drafts stay in the drafts folder, everything
// else lives in the folder of the counterpart.
func (s *Store) folderFor(m *models.Message) (string, error) {
	if m.Status == models.StatusDraft {
		return common.DraftsFolder, nil
	}
	folder := m.Counterpart(s.party)
	if folder == "" || folder == "." || folder == ".." || filepath.Base(folder) != folder {
		return "", fmt.Errorf("%w: no folder for counterpart %q", common.ErrGuardViolation, folder)
	}
	return folder, nil
}

// commit writes w to disk and into the collection. Must be called with s.mu
// held. Either every step succeeds or the attachments are restored and the
// collection is left untouched.
func (s *Store) commit(ctx context.Context, w *models.Message, draft bool) (res WriteResult, err error) {
	defer func() { s.metrics.ObserveWrite(err) }()

	folder, err := s.folderFor(w)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", w.ID, err)
	}
	target := filepath.Join(s.root, folder, common.MessagesFolder, w.ID.String()+common.DocumentExt)
	assetsDir := filepath.Join(s.root, folder, common.AssetsFolder)
	oldPath := w.Path
	relocating := oldPath != "" && oldPath != target

	// Persisted attachments outside the target folder follow the document.
	var moveIdx []int
	var toMove []models.Attachment
	if relocating {
		for i, a := range w.Attachments {
			if a.Path != "" && !attachments.InAssets(assetsDir, a.Path) {
				moveIdx = append(moveIdx, i)
				toMove = append(toMove, a)
			}
		}
	}

	moved, err := s.assets.Stage(ctx, assetsDir, toMove, attachments.ModeMove)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", w.ID, err)
	}
	copied, err := s.assets.Stage(ctx, assetsDir, w.NewAttachments, attachments.ModeCopy)
	if err != nil {
		return WriteResult{}, errors.Join(fmt.Errorf("write %s: %w", w.ID, err), moved.Rollback())
	}
	rollback := func(cause error) error {
		return errors.Join(cause, copied.Rollback(), moved.Rollback())
	}

	for j, i := range moveIdx {
		w.Attachments[i] = moved.Staged[j]
	}
	w.Attachments = append(w.Attachments, copied.Staged...)
	w.NewAttachments = nil
	discarded := w.Discarded
	w.Discarded = nil

	data, err := codec.Encode(w, codec.Options{Draft: draft})
	if err != nil {
		return WriteResult{}, rollback(fmt.Errorf("write %s: %w", w.ID, err))
	}

	dir := filepath.Dir(target)
	if err := filex.EnsureDir(dir); err != nil {
		return WriteResult{}, rollback(common.NewStorageError("create messages folder", dir, err))
	}
	s.known.remember(target, data)
	if err := filex.WriteFileAtomic(target, data); err != nil {
		s.known.forget(target)
		return WriteResult{}, rollback(common.NewStorageError("write document", target, err))
	}
	s.watchFolder(ctx, filepath.Join(s.root, folder), dir)

	if relocating {
		if err := os.Remove(oldPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "old document not removed", "path", oldPath, "error", err)
		}
	}
	s.assets.Discard(ctx, discarded)

	w.Path = target
	s.put(w)
	s.logger.Info(ctx, "message written",
		"message_id", w.ID, "path", target, "status", w.Status.String(), "relocated", relocating)

	return WriteResult{Message: w.Clone(), Path: target, Changed: true}, nil
}
