package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/codec"
	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/dmitrijs2005/ampcare/internal/notify"
	"github.com/dmitrijs2005/ampcare/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

type fakeAlerts struct {
	live      bool
	count     int
	dismissed int
}

func (f *fakeAlerts) Live() (notify.Notification, int, bool) {
	return notify.Notification{Title: notify.DefaultTitle}, f.count, f.live
}

func (f *fakeAlerts) Dismiss(ctx context.Context) {
	f.dismissed++
	f.live = false
}

type harness struct {
	root   string
	store  *store.Store
	alerts *fakeAlerts
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	s, err := store.Open(context.Background(), store.Options{
		Root:         root,
		Party:        "ward",
		PartyName:    "Ward 3",
		DisableWatch: true,
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &harness{root: root, store: s, alerts: &fakeAlerts{}, out: &bytes.Buffer{}}
}

// app builds an App reading the given input lines.
func (h *harness) app(lines ...string) *App {
	h.out.Reset()
	return NewApp(Options{
		Store:     h.store,
		Alerts:    h.alerts,
		PartyName: "Ward 3",
		In:        strings.NewReader(strings.Join(lines, "\n") + "\n"),
		Out:       h.out,
		Now:       func() time.Time { return fixedNow },
	})
}

// external places a message sent by gp to ward, as a sync client would.
func (h *harness) external(t *testing.T, status models.Status) *models.Message {
	t.Helper()
	m := models.New()
	m.Sender, m.SenderName = "gp", "Dr. Bo"
	m.Recipient, m.RecipientName = "ward", "Ward 3"
	m.Title = "Lab results"
	m.Status = status
	m.AuthoredOn = fixedNow.Add(-time.Hour)
	m.Note = models.ConversationRow("Dr. Bo", "DB", "Potassium is low", m.AuthoredOn, true)

	data, err := codec.Encode(m, codec.Options{})
	require.NoError(t, err)
	p := filepath.Join(h.root, "gp", common.MessagesFolder, m.ID.String()+common.DocumentExt)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return m
}

func composeInput(recipient string, extra ...string) []string {
	lines := []string{
		recipient, "Dr. Bo", "Handover", "2", "Jane Doe",
		"72", "36,6", "120/80", "AB",
		"Please check the dressing", "",
		"Paracetamol;;500 mg;tablet;1;;1;;pc;;", "",
	}
	return append(lines, extra...)
}

func TestCompose_Sends(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.app(composeInput("gp", "", "n")...)
	require.NoError(t, a.Compose(ctx))

	list := h.store.Messages()
	require.Len(t, list, 1)
	m := list[0]
	assert.Equal(t, models.StatusSent, m.Status)
	assert.Equal(t, "ward", m.Sender)
	assert.Equal(t, "Ward 3", m.SenderName)
	assert.Equal(t, "gp", m.Recipient)
	assert.Equal(t, models.PriorityUrgent, m.Priority)
	assert.Equal(t, "AB", m.Initials)
	assert.Equal(t, "Jane Doe", m.Patient.Name)
	assert.Equal(t, models.Measured(72, fixedNow), m.Vitals.Pulse)
	assert.InDelta(t, 36.6, m.Vitals.Temperature.Value, 1e-9)
	assert.Equal(t, 120, m.Vitals.BloodPressure.Systolic)
	assert.Equal(t, 80, m.Vitals.BloodPressure.Diastolic)
	require.Len(t, m.Medications, 1)
	assert.Equal(t, "Paracetamol", m.Medications[0].Ingredient)
	assert.Equal(t, [4]string{"1", "", "1", ""}, m.Medications[0].Doses())
	assert.Equal(t, "Please check the dressing", m.Preview())
	assert.FileExists(t, filepath.Join(h.root, "gp", common.MessagesFolder, m.ID.String()+common.DocumentExt))
	assert.Contains(t, h.out.String(), "Saved "+shortID(m.ID)+" (Sent)")
}

func TestCompose_WithoutRecipientKeptAsDraft(t *testing.T) {
	h := newHarness(t)

	a := h.app(composeInput("", "", "n")...)
	require.NoError(t, a.Compose(context.Background()))

	drafts := h.store.Drafts()
	require.Len(t, drafts, 1)
	assert.Equal(t, models.StatusDraft, drafts[0].Status)
	assert.Contains(t, h.out.String(), "kept as draft")
}

func TestCompose_RejectsBadInput(t *testing.T) {
	h := newHarness(t)

	lines := composeInput("gp", "", "n")
	lines[3] = "9"
	a := h.app(lines...)
	err := a.Compose(context.Background())
	require.ErrorIs(t, err, ErrBadInput)
	assert.Zero(t, h.store.Len())
	assert.Contains(t, h.out.String(), "compose:")
}

func TestEdit_SendsDraftAndDropsAttachment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o600))
	d := models.New()
	d.Title = "Wound"
	d.Attach(src, "ward")
	res, err := h.store.CreateOrUpdate(ctx, d, true)
	require.NoError(t, err)
	staged := res.Message.Attachments[0].Path
	require.FileExists(t, staged)

	a := h.app("", "gp", "scan.png", "", "", "y")
	require.NoError(t, a.Edit(ctx, d.ID.String()[:8]))

	got, err := h.store.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, "Wound", got.Title)
	assert.Empty(t, got.Attachments)
	assert.NoFileExists(t, staged)
	assert.Empty(t, h.store.Drafts())
}

func TestEdit_OnlyDrafts(t *testing.T) {
	h := newHarness(t)
	m := h.external(t, models.StatusSent)
	_, err := h.store.Rescan(context.Background())
	require.NoError(t, err)

	a := h.app()
	require.Error(t, a.Edit(context.Background(), m.ID.String()))
	assert.Contains(t, h.out.String(), "only drafts can be edited")
}

func TestReadResolveArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.external(t, models.StatusSent)
	_, err := h.store.Rescan(ctx)
	require.NoError(t, err)

	a := h.app()
	require.NoError(t, a.List(ctx))
	assert.Contains(t, h.out.String(), "Lab results: Potassium is low")
	assert.Contains(t, h.out.String(), "gp")

	require.NoError(t, a.Read(ctx, "1"))
	assert.Contains(t, h.out.String(), "Read "+shortID(m.ID)+" (Read)")

	require.NoError(t, a.Read(ctx, "1"))
	assert.Contains(t, h.out.String(), "nothing to do")

	require.NoError(t, a.Resolve(ctx, "1"))
	got, err := h.store.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)

	require.NoError(t, a.Archive(ctx, "1"))
	assert.True(t, h.store.IsArchivedFor(m.ID, "ward"))

	h.out.Reset()
	require.NoError(t, a.List(ctx))
	assert.Equal(t, "No messages\n", h.out.String())
}

func TestResolve_RequiresRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.external(t, models.StatusSent)
	_, err := h.store.Rescan(ctx)
	require.NoError(t, err)

	a := h.app()
	err = a.Resolve(ctx, m.ID.String())
	require.ErrorIs(t, err, common.ErrGuardViolation)
}

func TestReply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := h.external(t, models.StatusRead)
	_, err := h.store.Rescan(ctx)
	require.NoError(t, err)

	a := h.app("AB", "Supplement started", "", "")
	require.NoError(t, a.Reply(ctx, m.ID.String()))

	got, err := h.store.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResent, got.Status)
	assert.Equal(t, "Supplement started", got.Preview())
	assert.Contains(t, got.Note, "Ward 3/AB")

	a = h.app("AB", "")
	require.ErrorIs(t, a.Reply(ctx, m.ID.String()), ErrBadInput)
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))
	m := models.New()
	m.Recipient, m.RecipientName = "gp", "Dr. Bo"
	m.Title = "Discharge"
	m.Patient = models.Patient{Name: "Jane Doe", BirthDate: time.Date(1950, 5, 4, 0, 0, 0, 0, time.Local), Gender: models.GenderFemale}
	m.Vitals.Weight = models.Measured(71.5, fixedNow)
	m.Attach(src, "ward")
	_, err := h.store.CreateOrUpdate(ctx, m, false)
	require.NoError(t, err)

	a := h.app()
	require.NoError(t, a.Show(ctx, m.ID.String()))
	out := h.out.String()
	assert.Contains(t, out, "Title:     Discharge")
	assert.Contains(t, out, "To:        Dr. Bo (gp)")
	assert.Contains(t, out, "Jane Doe, born 04.05.1950, female")
	assert.Contains(t, out, "weight 71.5 kg")
	assert.Contains(t, out, "report.pdf [document] 5 B")
}

func TestLookup(t *testing.T) {
	h := newHarness(t)
	m := h.external(t, models.StatusSent)
	_, err := h.store.Rescan(context.Background())
	require.NoError(t, err)

	a := h.app()
	_, err = a.lookup("1")
	require.ErrorIs(t, err, ErrUnknownRef, "nothing listed yet")

	got, err := a.lookup(m.ID.String()[:6])
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = a.lookup("zz")
	require.ErrorIs(t, err, ErrUnknownRef)

	_, err = a.lookup("6f1c2d9e-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRescanAndDismiss(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.external(t, models.StatusSent)

	a := h.app()
	require.NoError(t, a.Rescan(ctx))
	assert.Equal(t, "1 new\n", h.out.String())

	h.out.Reset()
	require.NoError(t, a.Dismiss(ctx))
	assert.Equal(t, "No notification\n", h.out.String())

	h.alerts.live, h.alerts.count = true, 3
	assert.Equal(t, "(ward, 1 active, 3 new)", a.status())
	require.NoError(t, a.Dismiss(ctx))
	assert.Equal(t, 1, h.alerts.dismissed)
	assert.Equal(t, "(ward, 1 active)", a.status())
}

func TestRun(t *testing.T) {
	captureOutput(t)
	h := newHarness(t)
	h.external(t, models.StatusSent)
	_, err := h.store.Rescan(context.Background())
	require.NoError(t, err)

	a := h.app("list", "read 1", "exit")
	a.Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "AMP messages for Ward 3")
	assert.Contains(t, out, "Lab results")
	assert.Contains(t, out, "(Read)")
}
