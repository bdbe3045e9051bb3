package engine

// Kind tells the caller how to treat a Result.
type Kind string

const (
	KindSuccess Kind = "success"
	// KindConfirm means nothing was mutated; the caller must echo Details
	// back to proceed.
	KindConfirm Kind = "confirmation_required"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// EmailSummary is the lightweight view shown in listings and previews.
type EmailSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// ActionDetails is the replay token for a confirmed mutation. It round-trips
// through JSON so a conversational frontend can hold it across turns. Query
// is carried verbatim so confirmation executes exactly what was previewed,
// even if the clock has since moved.
type ActionDetails struct {
	Action        string `json:"action"`
	TargetType    string `json:"target_type"`
	Target        string `json:"target"`
	Label         string `json:"label,omitempty"`
	Query         string `json:"query"`
	OlderThanDays int    `json:"older_than_days,omitempty"`
	DateRange     string `json:"date_range,omitempty"`
	Count         int    `json:"count"`
	SendTo        string `json:"send_to,omitempty"`
	SendSubject   string `json:"send_subject,omitempty"`
	SendBody      string `json:"send_body,omitempty"`
}

// Result is the uniform outcome of every operation.
type Result struct {
	Kind          Kind           `json:"kind"`
	Message       string         `json:"message"`
	Count         int            `json:"count,omitempty"`
	Failed        int            `json:"failed,omitempty"`
	UndoID        string         `json:"undo_id,omitempty"`
	Preview       []EmailSummary `json:"preview,omitempty"`
	Emails        []EmailSummary `json:"emails,omitempty"`
	Details       *ActionDetails `json:"details,omitempty"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func errorResult(msg string) Result {
	return Result{Kind: KindError, Message: msg}
}

func infoResult(msg string) Result {
	return Result{Kind: KindInfo, Message: msg}
}
