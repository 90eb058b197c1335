package models

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PreviewLength is the number of runes of the last conversation entry shown
// in list previews.
const PreviewLength = 40

// ConversationDateLayout is the timestamp format used inside conversation rows.
const ConversationDateLayout = "02.01.2006 15:04:05"

// Message is one clinical handover message. Times are wall-clock local
// time with second precision.
type Message struct {
	ID   uuid.UUID
	Path string // backing document, empty until the first write

	Priority Priority
	Status   Status
	Title    string
	// Note holds the conversation as an HTML table fragment.
	Note       string
	AuthoredOn time.Time

	Sender        string
	SenderName    string
	Initials      string
	Recipient     string
	RecipientName string

	Patient      Patient
	Vitals       Vitals
	Observations Observations
	Medications  []Medication
	Attachments  []Attachment
	ArchivedFor  []ArchiveRecord

	// NewAttachments are local files to stage into the assets folder on the
	// next write. Never serialized.
	NewAttachments []Attachment
	// Discarded lists persisted attachment files to delete after the next
	// successful write. Never serialized.
	Discarded []string
}

// New returns an empty draft with a fresh identity.
func New() *Message {
	return &Message{
		ID:       uuid.New(),
		Priority: PriorityInfo,
		Status:   StatusDraft,
	}
}

// Clone returns a deep copy so callers cannot alias store state.
func (m *Message) Clone() *Message {
	c := *m
	c.Medications = slices.Clone(m.Medications)
	c.Attachments = slices.Clone(m.Attachments)
	c.ArchivedFor = slices.Clone(m.ArchivedFor)
	c.NewAttachments = slices.Clone(m.NewAttachments)
	c.Discarded = slices.Clone(m.Discarded)
	return &c
}

func (m *Message) IsParticipant(party string) bool {
	return party != "" && (party == m.Sender || party == m.Recipient)
}

// Counterpart returns the other participant from the point of view of
// current.
func (m *Message) Counterpart(current string) string {
	if m.Recipient == current {
		return m.Sender
	}
	return m.Recipient
}

func (m *Message) IsArchivedFor(party string) bool {
	return slices.ContainsFunc(m.ArchivedFor, func(r ArchiveRecord) bool {
		return r.Party == party
	})
}

// ArchivedByAll reports whether both the sender and the recipient hold an
// archival record.
func (m *Message) ArchivedByAll() bool {
	return m.Sender != "" && m.Recipient != "" &&
		m.IsArchivedFor(m.Sender) && m.IsArchivedFor(m.Recipient)
}

// SettleArchived promotes a resolved message to Archived once every party
// archived it.
func (m *Message) SettleArchived() {
	if m.Status == StatusResolved && m.ArchivedByAll() {
		m.Status = StatusArchived
	}
}

func (m *Message) Images() []Attachment    { return m.attachmentsOf(KindImage) }
func (m *Message) Documents() []Attachment { return m.attachmentsOf(KindDocument) }

func (m *Message) attachmentsOf(kind AttachmentKind) []Attachment {
	var out []Attachment
	for _, a := range m.Attachments {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Attach queues a local file to be copied into the assets folder.
func (m *Message) Attach(sourcePath, attachedBy string) {
	m.NewAttachments = append(m.NewAttachments, NewAttachment(sourcePath, attachedBy))
}

// Detach removes the named attachment. A persisted file is queued for
// deletion after the next successful write; a pending one is simply dropped.
func (m *Message) Detach(name string) bool {
	if i := slices.IndexFunc(m.NewAttachments, func(a Attachment) bool { return a.Name == name }); i >= 0 {
		m.NewAttachments = slices.Delete(m.NewAttachments, i, i+1)
		return true
	}
	i := slices.IndexFunc(m.Attachments, func(a Attachment) bool { return a.Name == name })
	if i < 0 {
		return false
	}
	if p := m.Attachments[i].Path; p != "" {
		m.Discarded = append(m.Discarded, p)
	}
	m.Attachments = slices.Delete(m.Attachments, i, i+1)
	return true
}

var bodyCell = regexp.MustCompile(`<td class='messageBody'>(.*?)</td>`)

// Preview returns the text of the latest conversation entry, cut to
// PreviewLength runes.
func (m *Message) Preview() string {
	matches := bodyCell.FindAllStringSubmatch(m.Note, -1)
	if len(matches) == 0 {
		return ""
	}
	text := html.UnescapeString(matches[len(matches)-1][1])
	if utf8.RuneCountInString(text) > PreviewLength {
		r := []rune(text)
		text = string(r[:PreviewLength]) + " ..."
	}
	return text
}

// ShortTitle is the one-line list label: title plus preview.
func (m *Message) ShortTitle() string {
	if p := m.Preview(); p != "" {
		return m.Title + ": " + p
	}
	return m.Title
}

// ConversationRow renders one conversation entry. fromSender selects the
// badge style of the original author.
func ConversationRow(name, initials, text string, at time.Time, fromSender bool) string {
	class := "messageRecipient"
	if fromSender {
		class = "messageSender"
	}
	return fmt.Sprintf(
		"<tr><td><div class='%s'>%s/%s</div></td><td class='messageBody'>%s</td><td class='messageDate'>%s</td></tr>",
		class,
		html.EscapeString(name),
		html.EscapeString(initials),
		html.EscapeString(strings.TrimSpace(text)),
		at.Format(ConversationDateLayout),
	)
}
