package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/metrics"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ScanIsolatesCorruptDocuments(t *testing.T) {
	root := t.TempDir()
	writeExternal(t, root, "gp", incoming(models.StatusSent))
	writeExternal(t, root, "gp", incoming(models.StatusRead))

	msgs := filepath.Join(root, "gp", common.MessagesFolder)
	corrupt := filepath.Join(msgs, "broken.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{ not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(msgs, ".partial.json.123.tmp"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(msgs, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty-party"), 0o700))

	mt := metrics.New(nil)
	s := openTestStore(t, root, "ward", func(o *Options) { o.Metrics = mt })

	assert.Equal(t, 2, s.Len())
	errs := s.ScanErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, corrupt, errs[0].Path)
	assert.ErrorIs(t, errs[0], common.ErrDecode)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.DecodeFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.StoreMessages))
}

func TestOpen_CreatesRootAndRejectsEmptyParty(t *testing.T) {
	root := filepath.Join(t.TempDir(), "amp")
	s := openTestStore(t, root, "ward")
	assert.DirExists(t, root)
	assert.Zero(t, s.Len())

	_, err := Open(context.Background(), Options{Root: root})
	require.Error(t, err)
}

func TestMessages_Ordering(t *testing.T) {
	root := t.TempDir()
	older := incoming(models.StatusSent)
	older.AuthoredOn = fixedNow.Add(-2 * time.Hour)
	newer := incoming(models.StatusSent)
	newer.AuthoredOn = fixedNow.Add(-time.Hour)
	tieA := incoming(models.StatusSent)
	tieA.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	tieA.AuthoredOn = older.AuthoredOn
	for _, m := range []*models.Message{older, newer, tieA} {
		writeExternal(t, root, "gp", m)
	}

	s := openTestStore(t, root, "ward")
	list := s.Messages()
	require.Len(t, list, 3)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, tieA.ID, list[1].ID, "ties ordered by id")
	assert.Equal(t, older.ID, list[2].ID)

	first, ok := s.At(0)
	require.True(t, ok)
	assert.Equal(t, newer.ID, first.ID)
	_, ok = s.At(3)
	assert.False(t, ok)
}

func TestCreateOrUpdate_DraftPromotion(t *testing.T) {
	root := t.TempDir()
	s := openTestStore(t, root, "ward")
	src := writeSource(t, "wound.jpg", "jpeg")

	m := models.New()
	m.Title = "Pressure sore"
	m.Recipient, m.RecipientName = "gp", "Dr. Bo"
	m.Attach(src, "ward")

	res, err := s.CreateOrUpdate(context.Background(), m, true)
	require.NoError(t, err)
	draftDoc := docPath(root, common.DraftsFolder, m)
	draftAsset := filepath.Join(root, common.DraftsFolder, common.AssetsFolder, "wound.jpg")
	assert.Equal(t, draftDoc, res.Path)
	assert.FileExists(t, draftAsset)
	assert.FileExists(t, src, "draft attachments are copied")
	assert.Equal(t, models.StatusDraft, readDisk(t, draftDoc).Status)
	assert.Empty(t, m.Path, "caller's message is not modified")

	res, err = s.CreateOrUpdate(context.Background(), res.Message, false)
	require.NoError(t, err)

	sentDoc := docPath(root, "gp", m)
	sentAsset := filepath.Join(root, "gp", common.AssetsFolder, "wound.jpg")
	assert.Equal(t, sentDoc, res.Path)
	assert.NoFileExists(t, draftDoc)
	assert.NoFileExists(t, draftAsset)
	assert.FileExists(t, sentAsset)

	onDisk := readDisk(t, sentDoc)
	assert.Equal(t, models.StatusSent, onDisk.Status)
	assert.Equal(t, "ward", onDisk.Sender)
	assert.Equal(t, "ward name", onDisk.SenderName)
	require.Len(t, onDisk.Attachments, 1)
	assert.Equal(t, sentAsset, onDisk.Attachments[0].Path)

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, sentDoc, got.Path)
	assert.Empty(t, s.Drafts())
}

func TestCreateOrUpdate_NoRecipientDowngrades(t *testing.T) {
	root := t.TempDir()
	s := openTestStore(t, root, "ward")

	m := models.New()
	m.Title = "Unaddressed"
	res, err := s.CreateOrUpdate(context.Background(), m, false)
	require.NoError(t, err)
	assert.True(t, res.Downgraded)
	assert.Equal(t, models.StatusDraft, res.Message.Status)
	assert.FileExists(t, docPath(root, common.DraftsFolder, m))
	assert.Equal(t, fixedNow, res.Message.AuthoredOn)
	assert.Len(t, s.Drafts(), 1)
}

func TestCreateOrUpdate_DraftAfterSendRejected(t *testing.T) {
	root := t.TempDir()
	s := openTestStore(t, root, "ward")

	m := models.New()
	m.Recipient = "gp"
	res, err := s.CreateOrUpdate(context.Background(), m, false)
	require.NoError(t, err)

	_, err = s.CreateOrUpdate(context.Background(), res.Message, true)
	require.ErrorIs(t, err, common.ErrGuardViolation)
	assert.FileExists(t, docPath(root, "gp", m))
}

func TestCreateOrUpdate_RejectsStatusChanges(t *testing.T) {
	tests := []struct {
		name   string
		stored bool
		status models.Status
	}{
		{"sent to resolved", true, models.StatusResolved},
		{"sent to read", true, models.StatusRead},
		{"sent to draft", true, models.StatusDraft},
		{"new as read", false, models.StatusRead},
		{"new as resolved", false, models.StatusResolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			s := openTestStore(t, root, "ward")
			ctx := context.Background()

			m := models.New()
			m.Recipient = "gp"
			if tt.stored {
				res, err := s.CreateOrUpdate(ctx, m, false)
				require.NoError(t, err)
				m = res.Message
			}
			m.Status = tt.status

			_, err := s.CreateOrUpdate(ctx, m, false)
			require.ErrorIs(t, err, common.ErrGuardViolation)

			if !tt.stored {
				assert.Equal(t, 0, s.Len())
				assert.NoFileExists(t, docPath(root, "gp", m))
				return
			}
			got, err := s.Get(m.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusSent, got.Status)
			assert.Equal(t, models.StatusSent, readDisk(t, docPath(root, "gp", m)).Status)
		})
	}
}

func TestCreateOrUpdate_FailureLeavesStateUnchanged(t *testing.T) {
	root := t.TempDir()
	mt := metrics.New(nil)
	s := openTestStore(t, root, "ward", func(o *Options) { o.Metrics = mt })

	// a file where the messages folder should be makes the write fail
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gp"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "gp", common.MessagesFolder), nil, 0o600))

	src := writeSource(t, "scan.pdf", "pdf")
	m := models.New()
	m.Recipient = "gp"
	m.Attach(src, "ward")

	r := record(s)
	_, err := s.CreateOrUpdate(context.Background(), m, false)
	require.ErrorIs(t, err, common.ErrStorage)

	assert.Zero(t, s.Len())
	assert.Empty(t, r.kinds())
	assert.NoFileExists(t, filepath.Join(root, "gp", common.AssetsFolder, "scan.pdf"))
	assert.FileExists(t, src)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.StoreWrites.WithLabelValues(metrics.ResultError)))
}

func TestCreateOrUpdate_DiscardsDetachedAttachments(t *testing.T) {
	root := t.TempDir()
	s := openTestStore(t, root, "ward")

	m := models.New()
	m.Recipient = "gp"
	m.Attach(writeSource(t, "a.jpg", "a"), "ward")
	m.Attach(writeSource(t, "b.jpg", "b"), "ward")
	res, err := s.CreateOrUpdate(context.Background(), m, false)
	require.NoError(t, err)
	require.Len(t, res.Message.Attachments, 2)

	edit := res.Message
	require.True(t, edit.Detach("a.jpg"))
	res, err = s.CreateOrUpdate(context.Background(), edit, false)
	require.NoError(t, err)

	assets := filepath.Join(root, "gp", common.AssetsFolder)
	assert.NoFileExists(t, filepath.Join(assets, "a.jpg"))
	assert.FileExists(t, filepath.Join(assets, "b.jpg"))
	require.Len(t, res.Message.Attachments, 1)
	assert.Empty(t, res.Message.Discarded)
}

func TestMarkRead_RoleGated(t *testing.T) {
	root := t.TempDir()
	in := incoming(models.StatusSent)
	path := writeExternal(t, root, "gp", in)

	t.Run("stranger rejected", func(t *testing.T) {
		s := openTestStore(t, root, "ward")
		_, err := s.MarkRead(context.Background(), in.ID, "intruder")
		require.ErrorIs(t, err, common.ErrRoleMismatch)

		got, err := s.Get(in.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, got.Status)
		assert.Equal(t, models.StatusSent, readDisk(t, path).Status)
	})

	t.Run("sender is a no-op", func(t *testing.T) {
		s := openTestStore(t, root, "gp")
		res, err := s.MarkRead(context.Background(), in.ID, "gp")
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, models.StatusSent, readDisk(t, path).Status)
	})

	t.Run("recipient reads", func(t *testing.T) {
		s := openTestStore(t, root, "ward")
		res, err := s.MarkRead(context.Background(), in.ID, "ward")
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, path, res.Path)
		assert.Equal(t, models.StatusRead, readDisk(t, path).Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := openTestStore(t, root, "ward")
		_, err := s.MarkRead(context.Background(), uuid.New(), "ward")
		require.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestMarkResolved(t *testing.T) {
	root := t.TempDir()
	in := incoming(models.StatusRead)
	path := writeExternal(t, root, "gp", in)

	sender := openTestStore(t, root, "gp")
	_, err := sender.MarkResolved(context.Background(), in.ID)
	require.ErrorIs(t, err, common.ErrGuardViolation)

	s := openTestStore(t, root, "ward")
	_, err = s.MarkResolved(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, readDisk(t, path).Status)
}

func TestArchive_PerPartyIndependence(t *testing.T) {
	root := t.TempDir()
	in := incoming(models.StatusResolved)
	path := writeExternal(t, root, "gp", in)
	s := openTestStore(t, root, "ward")

	_, err := s.Archive(context.Background(), in.ID, "ward")
	require.NoError(t, err)

	assert.True(t, s.IsArchivedFor(in.ID, "ward"))
	assert.False(t, s.IsArchivedFor(in.ID, "gp"))
	assert.Empty(t, s.Active("ward"))
	assert.Len(t, s.Active("gp"), 1)
	assert.Equal(t, 1, s.Len(), "archived records stay in the raw collection")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "resolved"`)

	res, err := s.Archive(context.Background(), in.ID, "ward")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = s.Archive(context.Background(), in.ID, "gp")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "resolved"`)

	got, err := s.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, got.Status)
	require.Len(t, got.ArchivedFor, 2)
	assert.Equal(t, fixedNow, got.ArchivedFor[0].At)
}

func TestReply(t *testing.T) {
	root := t.TempDir()
	in := incoming(models.StatusRead)
	path := writeExternal(t, root, "gp", in)
	s := openTestStore(t, root, "ward")
	src := writeSource(t, "ecg.pdf", "pdf")

	res, err := s.Reply(context.Background(), in.ID, Reply{Initials: "AN", Text: "Noted", Attachments: []string{src}})
	require.NoError(t, err)

	onDisk := readDisk(t, path)
	assert.Equal(t, models.StatusResent, onDisk.Status)
	assert.Equal(t, "AN", onDisk.Initials)
	assert.Contains(t, onDisk.Note, "<div class='messageRecipient'>ward name/AN</div>")
	assert.Equal(t, "Noted", res.Message.Preview())
	require.Len(t, onDisk.Attachments, 1)
	assert.Equal(t, models.KindDocument, onDisk.Attachments[0].Kind)
	assert.FileExists(t, filepath.Join(root, "gp", common.AssetsFolder, "ecg.pdf"))

	_, err = s.Reply(context.Background(), in.ID, Reply{Text: "again"})
	require.NoError(t, err)
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t, t.TempDir(), "ward")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.CreateOrUpdate(context.Background(), models.New(), true)
	require.ErrorIs(t, err, common.ErrClosed)
	_, err = s.Rescan(context.Background())
	require.ErrorIs(t, err, common.ErrClosed)
}
