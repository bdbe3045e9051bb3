package gmail

import "time"

type MessageID string
type LabelID string

// Well-known system label IDs.
const (
	LabelInbox LabelID = "INBOX"
	LabelTrash LabelID = "TRASH"
	LabelSpam  LabelID = "SPAM"
	LabelSent  LabelID = "SENT"
)

// Query is a fully-formed Gmail search query string.
type Query struct {
	Raw string
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

// MessageMeta is the headers-only projection used for previews and stats.
type MessageMeta struct {
	ID       MessageID
	Labels   []LabelID
	Headers  map[string]string // From, Subject, etc.
	Snippet  string
	Internal time.Time // server receive time, zero if not requested
}

// ModifyOps describes a label mutation applied to one or more messages.
type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

// Label is a user-visible label.
type Label struct {
	ID   LabelID
	Name string
	Type string // "system" or "user"
}

// Outgoing is a plain-text message to send.
type Outgoing struct {
	To      string
	Subject string
	Body    string
}
