package attachments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/filex"
	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
)

// Mode selects how a source file reaches the assets folder.
type Mode int

const (
	ModeCopy Mode = iota
	ModeMove
)

func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

type Manager struct {
	token   func() string
	logger  logging.Logger
	metrics *metrics.Metrics
}

type Option func(*Manager)

// WithToken replaces the collision prefix generator.
func WithToken(token func() string) Option { return func(m *Manager) { m.token = token } }

func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.logger = l } }

func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		token:  uuid.NewString,
		logger: logging.Discard(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Stage places every pending attachment into assetsDir. ModeCopy leaves the
// source in place, ModeMove renames it. On failure the files staged so far
// are restored and the error is returned; the returned batch is then nil.
func (m *Manager) Stage(ctx context.Context, assetsDir string, pending []models.Attachment, mode Mode) (*Batch, error) {
	b := &Batch{logger: m.logger}
	if len(pending) == 0 {
		return b, nil
	}
	if err := filex.EnsureDir(assetsDir); err != nil {
		return nil, common.NewStorageError("create assets folder", assetsDir, err)
	}

	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(err, b.Rollback())
		}
		staged, err := m.stageOne(assetsDir, a, mode, b)
		if err != nil {
			return nil, errors.Join(err, b.Rollback())
		}
		b.Staged = append(b.Staged, staged)
		m.metrics.ObserveStaged(mode.String())
	}
	return b, nil
}

func (m *Manager) stageOne(assetsDir string, a models.Attachment, mode Mode, b *Batch) (models.Attachment, error) {
	if a.Path == "" {
		return a, fmt.Errorf("stage %q: %w", a.Name, common.ErrNotFound)
	}
	name := a.Name
	if name == "" {
		name = filepath.Base(a.Path)
	}
	name = filex.UniqueName(assetsDir, name, m.token)
	dst := filepath.Join(assetsDir, name)

	var err error
	switch mode {
	case ModeMove:
		err = filex.MoveFile(a.Path, dst)
	default:
		err = filex.CopyFile(a.Path, dst)
	}
	if err != nil {
		return a, common.NewStorageError(mode.String()+" attachment", a.Path, err)
	}
	b.ops = append(b.ops, op{mode: mode, src: a.Path, dst: dst})

	m.logger.Debug(context.Background(), "attachment staged",
		"name", name, "source", a.Path, "mode", mode.String())

	a.Name = name
	a.Path = dst
	a.Kind = models.KindOf(name)
	return a, nil
}

// Discard deletes files of attachments removed from a message. Deletion is
// best effort: failures are logged and returned, never fatal. Files outside
// an assets folder are left alone.
func (m *Manager) Discard(ctx context.Context, paths []string) []error {
	var errs []error
	for _, p := range paths {
		if filepath.Base(filepath.Dir(p)) != common.AssetsFolder {
			m.logger.Warn(ctx, "refusing to delete file outside assets folder", "path", p)
			continue
		}
		err := os.Remove(p)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		m.metrics.ObserveRemoved(err)
		if err != nil {
			m.logger.Warn(ctx, "attachment cleanup failed", "path", p, "error", err)
			errs = append(errs, common.NewStorageError("remove attachment", p, err))
			continue
		}
		m.logger.Debug(ctx, "attachment removed", "path", p)
	}
	return errs
}

// InAssets reports whether path already lives in assetsDir.
func InAssets(assetsDir, path string) bool {
	rel, err := filepath.Rel(assetsDir, path)
	return err == nil && !strings.HasPrefix(rel, "..") && !strings.ContainsRune(rel, filepath.Separator)
}
