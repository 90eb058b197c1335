package models

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sent() *Message {
	m := New()
	m.Sender, m.Recipient = "ward", "gp"
	m.Status = StatusSent
	return m
}

func TestPrepareSend(t *testing.T) {
	tests := []struct {
		name       string
		sender     string
		recipient  string
		status     Status
		draft      bool
		wantStatus Status
		wantDown   bool
		wantErr    error
	}{
		{name: "send draft", recipient: "gp", status: StatusDraft, wantStatus: StatusSent},
		{name: "save draft", recipient: "gp", status: StatusDraft, draft: true, wantStatus: StatusDraft},
		{name: "no recipient downgrades", status: StatusDraft, wantStatus: StatusDraft, wantDown: true},
		{name: "update keeps status", sender: "ward", recipient: "gp", status: StatusRead, wantStatus: StatusRead},
		{name: "draft after send", sender: "ward", recipient: "gp", status: StatusSent, draft: true, wantStatus: StatusSent, wantErr: common.ErrGuardViolation},
		{name: "stranger", sender: "other", recipient: "gp", status: StatusDraft, wantStatus: StatusDraft, wantErr: common.ErrRoleMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Sender, m.Recipient, m.Status = tt.sender, tt.recipient, tt.status

			down, err := m.PrepareSend("ward", tt.draft)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantDown, down)
			assert.Equal(t, tt.wantStatus, m.Status)
			if tt.sender == "" {
				assert.Equal(t, "ward", m.Sender)
			}
		})
	}
}

func TestMarkRead(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		viewer  string
		want    Status
		changed bool
		wantErr error
	}{
		{"recipient reads", StatusSent, "gp", StatusRead, true, nil},
		{"sender on sent is noop", StatusSent, "ward", StatusSent, false, nil},
		{"sender reads answer", StatusResent, "ward", StatusReread, true, nil},
		{"recipient on resent is noop", StatusResent, "gp", StatusResent, false, nil},
		{"already read", StatusRead, "gp", StatusRead, false, nil},
		{"stranger rejected", StatusSent, "other", StatusSent, false, common.ErrRoleMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sent()
			m.Status = tt.status
			changed, err := m.MarkRead(tt.viewer)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, m.Status)
		})
	}
}

func TestReply(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	m := sent()
	m.Status = StatusRead

	require.NoError(t, m.Reply("gp", "Dr. Bo", "BO", "ok", at))
	assert.Equal(t, StatusResent, m.Status)
	assert.Contains(t, m.Note, "messageRecipient")

	require.NoError(t, m.Reply("ward", "Ann", "AN", "thanks", at))
	assert.Equal(t, StatusSent, m.Status)
	assert.Contains(t, m.Note, "messageSender")
	assert.Equal(t, "thanks", m.Preview())

	require.ErrorIs(t, m.Reply("other", "", "", "x", at), common.ErrRoleMismatch)

	m.Status = StatusResolved
	require.ErrorIs(t, m.Reply("gp", "", "", "x", at), common.ErrGuardViolation)
}

func TestResolve(t *testing.T) {
	m := sent()
	require.ErrorIs(t, m.Resolve("gp"), common.ErrGuardViolation, "unread message")

	m.Status = StatusRead
	require.ErrorIs(t, m.Resolve("ward"), common.ErrGuardViolation)
	require.ErrorIs(t, m.Resolve("other"), common.ErrRoleMismatch)
	require.NoError(t, m.Resolve("gp"))
	assert.Equal(t, StatusResolved, m.Status)

	m.Status = StatusReread
	require.NoError(t, m.Resolve("gp"))
}

func TestArchive_PerParty(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	m := sent()

	_, err := m.Archive("ward", at)
	require.ErrorIs(t, err, common.ErrGuardViolation)

	m.Status = StatusResolved
	changed, err := m.Archive("ward", at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.IsArchivedFor("ward"))
	assert.False(t, m.IsArchivedFor("gp"))
	assert.Equal(t, StatusResolved, m.Status)

	changed, err = m.Archive("ward", at)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, m.ArchivedFor, 1)

	_, err = m.Archive("other", at)
	require.ErrorIs(t, err, common.ErrRoleMismatch)

	changed, err = m.Archive("gp", at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusArchived, m.Status)
	assert.True(t, m.ArchivedByAll())
}
