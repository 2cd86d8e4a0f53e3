package gmail

// EmailSummary is the normalized view of one message.
type EmailSummary struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	To       string `json:"to"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
	IsUnread bool   `json:"is_unread"`
}

// InboxResult is the result of CheckInbox.
type InboxResult struct {
	Emails []EmailSummary `json:"emails"`
	Total  int            `json:"total"`
	Query  string         `json:"query"`
}

const (
	// DefaultQuery is used when the caller passes an empty query.
	DefaultQuery = "is:inbox"

	// DefaultMaxResults is used when the caller passes no limit.
	DefaultMaxResults = 10

	// MaxResultsCeiling bounds the number of per-message fetches of one call.
	MaxResultsCeiling = 50

	noSubject     = "(No Subject)"
	unknownSender = "Unknown"
	labelUnread   = "UNREAD"
)

// ClampMaxResults applies the default and the ceiling to n.
func ClampMaxResults(n int) int64 {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsCeiling:
		return MaxResultsCeiling
	default:
		return int64(n)
	}
}
