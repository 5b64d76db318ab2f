package models

import "time"

// Video source kinds for a review clip
const (
	VideoUpload   = "upload"
	VideoExternal = "external"
)

// Review is a rated free-text review of a chart with an optional video clip
type Review struct {
	ID        int64     `json:"id"`
	ScoreCode string    `json:"score_code"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	VideoType string    `json:"video_type,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
