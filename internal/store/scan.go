package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ampcare/internal/codec"
	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ScanError is one document that could not be read or decoded.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e ScanError) Unwrap() error { return e.Err }

type scanResult struct {
	messages []*models.Message
	errs     []ScanError
	// dirs are the party folders and messages folders that exist.
	dirs []string
}

// isDocument reports whether name is a message document. Hidden files,
// including the temporary files of atomic writes, are skipped.
func isDocument(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), common.DocumentExt)
}

// scanTree decodes every document under root/*/messages. Unreadable
// documents are collected as scan errors and never abort the scan.
func scanTree(ctx context.Context, root string, workers int) (*scanResult, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, common.NewStorageError("read root", root, err)
	}

	res := &scanResult{}
	var files []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		partyDir := filepath.Join(root, e.Name())
		res.dirs = append(res.dirs, partyDir)

		found, ok, err := listDocuments(filepath.Join(partyDir, common.MessagesFolder))
		if err != nil {
			res.errs = append(res.errs, ScanError{Path: filepath.Join(partyDir, common.MessagesFolder), Err: err})
			continue
		}
		if ok {
			res.dirs = append(res.dirs, filepath.Join(partyDir, common.MessagesFolder))
			files = append(files, found...)
		}
	}

	decoded := make([]*models.Message, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decoded[i], failures[i] = readDocument(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	for i, path := range files {
		if failures[i] != nil {
			res.errs = append(res.errs, ScanError{Path: path, Err: failures[i]})
			continue
		}
		res.messages = append(res.messages, decoded[i])
	}
	return res, nil
}

// listDocuments lists the documents in a messages folder. ok is false when
// the folder does not exist.
func listDocuments(dir string) (paths []string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, common.NewStorageError("read messages folder", dir, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && isDocument(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, true, nil
}

func readDocument(path string) (*models.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewStorageError("read document", path, err)
	}
	return decodeDocument(data, path)
}

// decodeDocument decodes data and gives documents without an identity a
// stable one derived from their path.
func decodeDocument(data []byte, path string) (*models.Message, error) {
	m, err := codec.Decode(data, path)
	if err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(path))
	}
	return m, nil
}

// applyScan replaces the collection with res and returns the identities
// that were not known before.
func (s *Store) applyScan(ctx context.Context, res *scanResult) []uuid.UUID {
	before := s.byID
	s.byID = make(map[uuid.UUID]*models.Message, len(res.messages))
	s.byPath = make(map[string]uuid.UUID, len(res.messages))

	var fresh []uuid.UUID
	for _, m := range res.messages {
		prev, dup := s.byID[m.ID]
		if dup {
			s.logger.Warn(ctx, "duplicate message identity", "message_id", m.ID, "path", m.Path, "other", prev.Path)
			// a leftover draft never shadows the sent copy
			if isDraftPath(m.Path) && !isDraftPath(prev.Path) {
				continue
			}
			delete(s.byPath, prev.Path)
		}
		s.byID[m.ID] = m
		s.byPath[m.Path] = m.ID
		if _, ok := before[m.ID]; !ok && !dup {
			fresh = append(fresh, m.ID)
		}
	}
	s.dirty = true
	s.scanErrs = res.errs
	s.metrics.SetMessages(len(s.byID))

	for _, e := range res.errs {
		s.logger.Warn(ctx, "skipping unreadable document", "path", e.Path, "error", e.Err)
		if errors.Is(e.Err, common.ErrDecode) {
			s.metrics.ObserveDecodeFailure()
		}
	}
	return fresh
}

func isDraftPath(p string) bool {
	return filepath.Base(filepath.Dir(filepath.Dir(p))) == common.DraftsFolder
}
