package models

// EventType discriminates live events pushed to the browser
type EventType string

const (
	EventClipboardUpdate  EventType = "clipboard_update"
	EventCompletionUpdate EventType = "completion_update"
	EventFavoriteUpdate   EventType = "favorite_update"
	EventRemarkUpdate     EventType = "remark_update"
	EventReviewUpdate     EventType = "review_update"
	EventScrapeDone       EventType = "scrape_done"
)

// Event is a single message on the live event channel
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// ClipboardCode is the payload for a score code detected on the clipboard
type ClipboardCode struct {
	Type       string `json:"type"` // always "score_code"
	ScoreCode  string `json:"score_code"`
	Exists     bool   `json:"exists"`
	Completion *int   `json:"completion"`
	IsFavorite bool   `json:"is_favorite"`
	HasReview  bool   `json:"has_review"`
}

// NewClipboardCode builds the clipboard payload from a status lookup
func NewClipboardCode(s ScoreStatus) ClipboardCode {
	return ClipboardCode{
		Type:       "score_code",
		ScoreCode:  s.ScoreCode,
		Exists:     s.Exists,
		Completion: s.Completion,
		IsFavorite: s.IsFavorite,
		HasReview:  s.HasReview,
	}
}
