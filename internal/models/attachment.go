package models

import (
	"path/filepath"
	"strings"
	"time"
)

type AttachmentKind int

const (
	KindImage AttachmentKind = iota
	KindDocument
)

func (k AttachmentKind) String() string {
	if k == KindDocument {
		return "document"
	}
	return "image"
}

// KindOf infers the attachment kind from the file extension: PDFs are
// documents, everything else is shown as an image.
func KindOf(name string) AttachmentKind {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return KindDocument
	}
	return KindImage
}

// Attachment is a file stored in the assets folder next to the message.
// For attachments that have not been staged yet Path is the source file.
type Attachment struct {
	Name       string
	Path       string
	AttachedBy string
	Kind       AttachmentKind
}

// NewAttachment describes a local file the author wants to attach.
func NewAttachment(sourcePath, attachedBy string) Attachment {
	name := filepath.Base(sourcePath)
	return Attachment{
		Name:       name,
		Path:       sourcePath,
		AttachedBy: attachedBy,
		Kind:       KindOf(name),
	}
}

// ArchiveRecord notes that Party archived the message at At.
type ArchiveRecord struct {
	Party string
	At    time.Time
}
