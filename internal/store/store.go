package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/attachments"
	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/filex"
	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const (
	defaultKnownWriteTTL = 2 * time.Second
	defaultScanWorkers   = 4
)

type Options struct {
	Root      string
	Party     string
	PartyName string

	KnownWriteTTL time.Duration
	ScanWorkers   int

	// DisableWatch skips the fsnotify watcher; external changes are then
	// only seen through Rescan.
	DisableWatch bool

	Logger      logging.Logger
	Metrics     *metrics.Metrics
	Attachments *attachments.Manager
	// Now defaults to time.Now. Stored times are truncated to seconds.
	Now func() time.Time
}

type Store struct {
	root      string
	party     string
	partyName string
	workers   int

	logger  logging.Logger
	metrics *metrics.Metrics
	assets  *attachments.Manager
	now     func() time.Time

	mu       sync.Mutex
	byID     map[uuid.UUID]*models.Message
	byPath   map[string]uuid.UUID
	ordered  []*models.Message
	dirty    bool
	known    *knownWrites
	scanErrs []ScanError
	closed   bool

	subs listeners

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Open scans the tree under opts.Root and starts watching it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Party == "" {
		return nil, errors.New("open store: empty party")
	}
	if opts.KnownWriteTTL <= 0 {
		opts.KnownWriteTTL = defaultKnownWriteTTL
	}
	if opts.ScanWorkers <= 0 {
		opts.ScanWorkers = defaultScanWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Attachments == nil {
		opts.Attachments = attachments.NewManager(
			attachments.WithLogger(opts.Logger),
			attachments.WithMetrics(opts.Metrics),
		)
	}
	if opts.PartyName == "" {
		opts.PartyName = opts.Party
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, common.NewStorageError("resolve root", opts.Root, err)
	}
	if err := filex.EnsureDir(root); err != nil {
		return nil, common.NewStorageError("create root", root, err)
	}

	s := &Store{
		root:      root,
		party:     opts.Party,
		partyName: opts.PartyName,
		workers:   opts.ScanWorkers,
		logger:    opts.Logger.With("party", opts.Party),
		metrics:   opts.Metrics,
		assets:    opts.Attachments,
		now:       opts.Now,
		byID:      make(map[uuid.UUID]*models.Message),
		byPath:    make(map[string]uuid.UUID),
	}
	s.known = newKnownWrites(opts.KnownWriteTTL, s.now)

	res, err := scanTree(ctx, root, s.workers)
	if err != nil {
		return nil, err
	}
	s.applyScan(ctx, res)
	s.logger.Info(ctx, "store opened", "root", root, "messages", len(s.byID), "scan_errors", len(res.errs))

	if !opts.DisableWatch {
		if err := s.startWatch(res.dirs); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close stops the watcher. Writes after Close fail with common.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	s.cancel()
	err := s.watcher.Close()
	<-s.done
	return err
}

func (s *Store) Root() string  { return s.root }
func (s *Store) Party() string { return s.party }

// Subscribe registers fn for collection changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() { return s.subs.add(fn) }

// Messages returns copies of all records, newest first.
func (s *Store) Messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.sorted())
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// At returns the record at index i of the ordered collection.
func (s *Store) At(i int) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.sorted()
	if i < 0 || i >= len(list) {
		return nil, false
	}
	return list[i].Clone(), true
}

func (s *Store) Get(id uuid.UUID) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, common.ErrNotFound)
	}
	return m.Clone(), nil
}

// Active returns the records party has not archived.
func (s *Store) Active(party string) []*models.Message {
	return s.filter(func(m *models.Message) bool { return !m.IsArchivedFor(party) })
}

func (s *Store) Drafts() []*models.Message {
	return s.filter(func(m *models.Message) bool { return m.Status == models.StatusDraft })
}

// IsArchivedFor reports whether party archived the message with id.
func (s *Store) IsArchivedFor(id uuid.UUID, party string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	return ok && m.IsArchivedFor(party)
}

// ScanErrors returns the per-file failures of the last full scan.
func (s *Store) ScanErrors() []ScanError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scanErrs)
}

func (s *Store) filter(keep func(*models.Message) bool) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, m := range s.sorted() {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	return out
}

func (s *Store) sorted() []*models.Message {
	if !s.dirty && s.ordered != nil {
		return s.ordered
	}
	list := make([]*models.Message, 0, len(s.byID))
	for _, m := range s.byID {
		list = append(list, m)
	}
	slices.SortFunc(list, func(a, b *models.Message) int {
		if c := b.AuthoredOn.Compare(a.AuthoredOn); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	s.ordered = list
	s.dirty = false
	return list
}

// put stores m and reports whether its identity was unknown.
func (s *Store) put(m *models.Message) bool {
	prev, known := s.byID[m.ID]
	if known && prev.Path != m.Path {
		delete(s.byPath, prev.Path)
	}
	s.byID[m.ID] = m
	if m.Path != "" {
		s.byPath[m.Path] = m.ID
	}
	s.dirty = true
	s.metrics.SetMessages(len(s.byID))
	return !known
}

func (s *Store) drop(id uuid.UUID) {
	m, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byPath, m.Path)
	s.dirty = true
	s.metrics.SetMessages(len(s.byID))
}

func (s *Store) clock() time.Time {
	return s.now().Local().Truncate(time.Second)
}

func cloneAll(list []*models.Message) []*models.Message {
	out := make([]*models.Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

func upserted(m *models.Message) Event {
	return Event{Kind: EventUpserted, ID: m.ID, Message: m.Clone()}
}
