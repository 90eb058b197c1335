package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/codec"
	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

func openTestStore(t *testing.T, root, party string, mutate ...func(*Options)) *Store {
	t.Helper()
	opts := Options{
		Root:         root,
		Party:        party,
		PartyName:    party + " name",
		DisableWatch: true,
		Metrics:      metrics.New(nil),
		Now:          func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func docPath(root, folder string, m *models.Message) string {
	return filepath.Join(root, folder, common.MessagesFolder, m.ID.String()+common.DocumentExt)
}

// writeExternal places a document the way a sync client would.
func writeExternal(t *testing.T, root, folder string, m *models.Message) string {
	t.Helper()
	data, err := codec.Encode(m, codec.Options{})
	require.NoError(t, err)
	p := docPath(root, folder, m)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func readDisk(t *testing.T, path string) *models.Message {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	m, err := codec.Decode(data, path)
	require.NoError(t, err)
	return m
}

func incoming(status models.Status) *models.Message {
	m := models.New()
	m.Sender, m.SenderName = "gp", "Dr. Bo"
	m.Recipient, m.RecipientName = "ward", "Ward 3"
	m.Title = "Lab results"
	m.Status = status
	m.AuthoredOn = fixedNow.Add(-time.Hour)
	return m
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(s *Store) *recorder {
	r := &recorder{}
	s.Subscribe(func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
