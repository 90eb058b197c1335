package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/filex"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

func (s *Store) startWatch(dirs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return common.NewStorageError("start watcher", s.root, err)
	}
	s.watcher = w
	if err := w.Add(s.root); err != nil {
		_ = w.Close()
		return common.NewStorageError("watch", s.root, err)
	}
	for _, d := range dirs {
		s.addWatch(context.Background(), d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.watchLoop(ctx)
	return nil
}

func (s *Store) watchLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.HandleEvent(ctx, ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			// an overflowed queue may have hidden new files
			s.logger.Warn(ctx, "watch error", "error", err)
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				if _, rerr := s.Rescan(ctx); rerr != nil {
					s.logger.Error(ctx, "rescan failed", "error", rerr)
				}
			}
		}
	}
}

func (s *Store) addWatch(ctx context.Context, dir string) {
	if s.watcher == nil {
		return
	}
	if err := s.watcher.Add(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn(ctx, "cannot watch folder", "path", dir, "error", err)
	}
}

// watchFolder makes sure a folder created by a local write is watched.
func (s *Store) watchFolder(ctx context.Context, dirs ...string) {
	for _, d := range dirs {
		s.addWatch(ctx, d)
	}
}

type eventScope int

const (
	scopeIgnored eventScope = iota
	scopeRoot
	scopeParty
	scopeMessages
	scopeDocument
)

// classify maps a watched path onto the layout of the tree.
func (s *Store) classify(path string) eventScope {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return scopeIgnored
	}
	if rel == "." {
		return scopeRoot
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if strings.HasPrefix(parts[0], ".") {
		return scopeIgnored
	}
	switch {
	case len(parts) == 1:
		return scopeParty
	case len(parts) == 2 && parts[1] == common.MessagesFolder:
		return scopeMessages
	case len(parts) == 3 && parts[1] == common.MessagesFolder && isDocument(parts[2]):
		return scopeDocument
	default:
		return scopeIgnored
	}
}

// HandleEvent applies one filesystem change to the collection. It is safe
// to call for changes caused by the store's own writes.
func (s *Store) HandleEvent(ctx context.Context, ev fsnotify.Event) {
	var events []Event
	defer func() { s.subs.dispatch(events) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	gone := ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	switch s.classify(ev.Name) {
	case scopeDocument:
		if gone {
			events = s.documentGone(ctx, ev.Name)
		} else if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
			events = s.documentChanged(ctx, ev.Name)
		}
	case scopeMessages:
		if gone {
			events = s.rescanLocked(ctx)
		} else if ev.Has(fsnotify.Create) {
			events = s.folderAppeared(ctx, ev.Name)
		}
	case scopeParty:
		if gone {
			if s.tracksUnder(ev.Name) {
				events = s.rescanLocked(ctx)
			}
		} else if ev.Has(fsnotify.Create) && isDir(ev.Name) {
			s.addWatch(ctx, ev.Name)
			events = s.folderAppeared(ctx, filepath.Join(ev.Name, common.MessagesFolder))
		}
	case scopeRoot:
		if gone {
			events = s.rescanLocked(ctx)
		}
	}
}

// documentChanged reads a created or modified document.
func (s *Store) documentChanged(ctx context.Context, path string) []Event {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.documentGone(ctx, path)
	}
	if err != nil {
		s.logger.Warn(ctx, "cannot read document", "path", path, "error", err)
		return nil
	}
	if s.known.matches(path, data) {
		s.logger.Debug(ctx, "ignoring own write", "path", path)
		return nil
	}

	m, err := decodeDocument(data, path)
	if err != nil {
		s.metrics.ObserveDecodeFailure()
		s.logger.Warn(ctx, "skipping unreadable document", "path", path, "error", err)
		return nil
	}
	if prev, ok := s.byID[m.ID]; ok && prev.Path != path && isDraftPath(path) && !isDraftPath(prev.Path) {
		s.logger.Warn(ctx, "duplicate message identity", "message_id", m.ID, "path", path, "other", prev.Path)
		return nil
	}

	isNew := s.put(m)
	events := []Event{upserted(m)}
	if isNew && s.notifies(m) {
		s.metrics.ObserveDiscovered(1)
		s.logger.Info(ctx, "message discovered", "message_id", m.ID, "path", path, "priority", m.Priority.String())
		events = append(events, Event{Kind: EventDiscovered, ID: m.ID, Message: m.Clone()})
	}
	return events
}

// documentGone drops the record of a document that no longer exists.
func (s *Store) documentGone(ctx context.Context, path string) []Event {
	if filex.IsFile(path) {
		return s.documentChanged(ctx, path)
	}
	id, ok := s.byPath[path]
	if !ok {
		return nil
	}
	s.known.forget(path)
	s.drop(id)
	s.logger.Info(ctx, "message removed externally", "message_id", id, "path", path)
	return []Event{{Kind: EventRemoved, ID: id}}
}

// folderAppeared starts watching a new messages folder and reads the
// documents already in it.
func (s *Store) folderAppeared(ctx context.Context, dir string) []Event {
	paths, ok, err := listDocuments(dir)
	if err != nil {
		s.logger.Warn(ctx, "cannot read messages folder", "path", dir, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	s.addWatch(ctx, dir)

	var events []Event
	for _, p := range paths {
		events = append(events, s.documentChanged(ctx, p)...)
	}
	return events
}

// Rescan rebuilds the collection from disk. Documents that were not known
// before are reported as discovered.
func (s *Store) Rescan(ctx context.Context) ([]uuid.UUID, error) {
	var events []Event
	defer func() { s.subs.dispatch(events) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, common.ErrClosed
	}

	res, err := scanTree(ctx, s.root, s.workers)
	if err != nil {
		return nil, err
	}
	fresh, evs := s.resetFrom(ctx, res)
	events = evs
	return fresh, nil
}

func (s *Store) rescanLocked(ctx context.Context) []Event {
	res, err := scanTree(ctx, s.root, s.workers)
	if err != nil {
		s.logger.Error(ctx, "rescan failed", "error", err)
		return nil
	}
	_, events := s.resetFrom(ctx, res)
	return events
}

func (s *Store) resetFrom(ctx context.Context, res *scanResult) ([]uuid.UUID, []Event) {
	fresh := s.applyScan(ctx, res)
	for _, d := range res.dirs {
		s.addWatch(ctx, d)
	}

	events := []Event{{Kind: EventReset}}
	n := 0
	for _, id := range fresh {
		m := s.byID[id]
		if !s.notifies(m) {
			continue
		}
		n++
		events = append(events, Event{Kind: EventDiscovered, ID: id, Message: m.Clone()})
	}
	s.metrics.ObserveDiscovered(n)
	s.logger.Info(ctx, "store rescanned", "messages", len(s.byID), "discovered", n)
	return fresh, events
}

// notifies reports whether a newly seen message concerns the current party.
func (s *Store) notifies(m *models.Message) bool {
	return m.Status != models.StatusDraft && m.Sender != s.party && !m.IsArchivedFor(s.party)
}

func (s *Store) tracksUnder(dir string) bool {
	prefix := dir + string(filepath.Separator)
	for p := range s.byPath {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
