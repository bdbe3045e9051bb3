// Package intent turns free-form mailbox commands into structured intents.
package intent

import "fmt"

// Action is the closed set of things a command can ask for.
type Action int

const (
	ActionUnknown Action = iota
	ActionList
	ActionDelete
	ActionArchive
	ActionRestore
	ActionLabel
	ActionSearch
	ActionStats
	ActionSend
	ActionInfoOnly
	ActionListLabels
	ActionShowLabel
)

func (a Action) String() string {
	switch a {
	case ActionList:
		return "list"
	case ActionDelete:
		return "delete"
	case ActionArchive:
		return "archive"
	case ActionRestore:
		return "restore"
	case ActionLabel:
		return "label"
	case ActionSearch:
		return "search"
	case ActionStats:
		return "stats"
	case ActionSend:
		return "send"
	case ActionInfoOnly:
		return "info_only"
	case ActionListLabels:
		return "list_labels"
	case ActionShowLabel:
		return "show_label"
	}
	return "unknown"
}

// TargetType is the closed set of things an action can operate on.
type TargetType int

const (
	TargetNone TargetType = iota
	TargetSender
	TargetDomain
	TargetCategory
	TargetCustomCategory
	TargetDateRange
	TargetOlderThan
	TargetBulkAge
	TargetRecent
	TargetArchived
	TargetAllMail
	TargetLabels
	TargetLabel
	TargetSubjectKeywords
	TargetStats
	TargetInfo
)

func (t TargetType) String() string {
	switch t {
	case TargetSender:
		return "sender"
	case TargetDomain:
		return "domain"
	case TargetCategory:
		return "category"
	case TargetCustomCategory:
		return "custom_category"
	case TargetDateRange:
		return "date_range"
	case TargetOlderThan:
		return "older_than"
	case TargetBulkAge:
		return "bulk_age"
	case TargetRecent:
		return "recent"
	case TargetArchived:
		return "archived"
	case TargetAllMail:
		return "all_mail"
	case TargetLabels:
		return "labels"
	case TargetLabel:
		return "label"
	case TargetSubjectKeywords:
		return "subject_keywords"
	case TargetStats:
		return "stats"
	case TargetInfo:
		return "info"
	}
	return "none"
}

// Intent is a parsed command. The parser guarantees Action/TargetType are
// set together; whether the combination is executable is decided by the
// engine, which discovers some invalid pairings late.
type Intent struct {
	Action     Action
	TargetType TargetType
	Target     string
	Keywords   []string // subject keyword targets

	// Modifiers.
	OlderThanDays int
	DateRange     string // phrase resolvable by datewindow, e.g. "2 weeks ago"
	Label         string

	// Send slots.
	SendTo      string
	SendSubject string
	SendBody    string

	NeedsConfirmation bool
	Confidence        int
}

// ParseError reports a command the parser could not understand. It carries
// the best-guess action and score for operator debugging and is never
// coerced into a default intent.
type ParseError struct {
	BestGuess  Action
	Score      int
	Diagnostic string
}

func (e *ParseError) Error() string { return e.Diagnostic }

func noActionError(best Action, score int) *ParseError {
	return &ParseError{
		BestGuess:  best,
		Score:      score,
		Diagnostic: fmt.Sprintf("no action matched with enough confidence; best guess was %q with a score of %d", best, score),
	}
}

func noPatternError(action Action, score int) *ParseError {
	return &ParseError{
		BestGuess:  action,
		Score:      score,
		Diagnostic: fmt.Sprintf("action %q was recognized, but no pattern matched the rest of the command", action),
	}
}
