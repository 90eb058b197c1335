package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/common"
)

// PrepareSend applies the status rules of a write by actor. A new message
// gets actor as sender. Sending without a recipient keeps the message a
// draft; downgraded reports that case. Saving a message that already left
// the draft state as a draft is rejected.
func (m *Message) PrepareSend(actor string, saveAsDraft bool) (downgraded bool, err error) {
	if m.Sender == "" {
		m.Sender = actor
	}
	if !m.IsParticipant(actor) {
		return false, fmt.Errorf("%w: %s is not a participant", common.ErrRoleMismatch, actor)
	}
	switch {
	case saveAsDraft:
		if m.Status != StatusDraft {
			return false, fmt.Errorf("%w: cannot save a %s message as draft", common.ErrGuardViolation, m.Status)
		}
	case m.Recipient == "":
		m.Status = StatusDraft
		return true, nil
	case m.Status == StatusDraft:
		m.Status = StatusSent
	}
	return false, nil
}

// MarkRead records that viewer opened the message. The recipient moves Sent
// to Read, the sender moves Resent to Reread; every other combination of a
// participant and status is a no-op.
func (m *Message) MarkRead(viewer string) (changed bool, err error) {
	switch {
	case viewer == m.Recipient && m.Status == StatusSent:
		m.Status = StatusRead
		return true, nil
	case viewer == m.Sender && m.Status == StatusResent:
		m.Status = StatusReread
		return true, nil
	case m.IsParticipant(viewer):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s is not a participant", common.ErrRoleMismatch, viewer)
	}
}

// Reply appends a conversation row by author. A reply by the sender hands
// the message back to the recipient (Sent), a reply by the recipient
// answers it (Resent).
func (m *Message) Reply(author, authorName, initials, text string, at time.Time) error {
	if !m.IsParticipant(author) {
		return fmt.Errorf("%w: %s is not a participant", common.ErrRoleMismatch, author)
	}
	switch m.Status {
	case StatusDraft, StatusResolved, StatusArchived:
		return fmt.Errorf("%w: cannot reply to a %s message", common.ErrGuardViolation, m.Status)
	}
	fromSender := author == m.Sender
	m.Note += ConversationRow(authorName, initials, text, at, fromSender)
	if fromSender {
		m.Status = StatusSent
	} else {
		m.Status = StatusResent
	}
	return nil
}

// Resolve closes the conversation. Only the recipient may resolve, and only
// after reading the latest entry.
func (m *Message) Resolve(actor string) error {
	if !m.IsParticipant(actor) {
		return fmt.Errorf("%w: %s is not a participant", common.ErrRoleMismatch, actor)
	}
	if actor != m.Recipient {
		return fmt.Errorf("%w: only the recipient may resolve", common.ErrGuardViolation)
	}
	if m.Status != StatusRead && m.Status != StatusReread {
		return fmt.Errorf("%w: cannot resolve a %s message", common.ErrGuardViolation, m.Status)
	}
	m.Status = StatusResolved
	return nil
}

// Archive appends an archival record for party. Archiving twice is a no-op.
func (m *Message) Archive(party string, at time.Time) (changed bool, err error) {
	if !m.IsParticipant(party) {
		return false, fmt.Errorf("%w: %s is not a participant", common.ErrRoleMismatch, party)
	}
	if m.Status != StatusResolved && m.Status != StatusArchived {
		return false, fmt.Errorf("%w: cannot archive a %s message", common.ErrGuardViolation, m.Status)
	}
	if m.IsArchivedFor(party) {
		return false, nil
	}
	m.ArchivedFor = append(m.ArchivedFor, ArchiveRecord{Party: party, At: at})
	m.SettleArchived()
	return true, nil
}
