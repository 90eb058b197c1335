package models

import "strconv"

// Priority orders messages from least to most pressing.
type Priority int

const (
	PriorityInfo Priority = iota
	PriorityGood
	PriorityUrgent
	PriorityCritical
)

func (p Priority) Valid() bool { return p >= PriorityInfo && p <= PriorityCritical }

func (p Priority) String() string {
	switch p {
	case PriorityInfo:
		return "info"
	case PriorityGood:
		return "good"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	default:
		return "priority(" + strconv.Itoa(int(p)) + ")"
	}
}

// Key is the notification alert key for the priority.
func (p Priority) Key() string { return strconv.Itoa(int(p)) }

// Icon is the theme icon file shown next to messages of this priority.
func (p Priority) Icon() string {
	switch p {
	case PriorityGood:
		return "icon_c_good.png"
	case PriorityUrgent:
		return "icon_b_urgent.png"
	case PriorityCritical:
		return "icon_a_critical.png"
	default:
		return "icon_d_info.png"
	}
}

// Status is the position of a message in its lifecycle.
//
//	Draft -> Sent -> Read -> Resent -> Reread -> Resolved -> Archived
//
// Archived is reached only once every party holds an archival record.
type Status int

const (
	StatusDraft Status = iota
	StatusSent
	StatusRead
	StatusResent
	StatusReread
	StatusResolved
	StatusArchived
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSent:
		return "sent"
	case StatusRead:
		return "read"
	case StatusResent:
		return "resent"
	case StatusReread:
		return "reread"
	case StatusResolved:
		return "resolved"
	case StatusArchived:
		return "archived"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Label is the human readable status shown in list tooltips.
func (s Status) Label() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusSent:
		return "Sent"
	case StatusRead:
		return "Read"
	case StatusResent:
		return "Answered"
	case StatusReread:
		return "Answer read"
	case StatusResolved:
		return "Resolved"
	case StatusArchived:
		return "Archived"
	default:
		return ""
	}
}

func (s Status) Icon() string {
	switch s {
	case StatusSent:
		return "icon_b_sent.png"
	case StatusRead:
		return "icon_c_read.png"
	case StatusResent:
		return "icon_d_resent.png"
	case StatusReread:
		return "icon_e_reread.png"
	case StatusResolved, StatusArchived:
		return "icon_f_resolved.png"
	default:
		return "icon_a_empty.png"
	}
}

type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return ""
	}
}

// ParseGender maps the document's gender code; anything else is unknown.
func ParseGender(s string) Gender {
	switch s {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	default:
		return GenderUnknown
	}
}
