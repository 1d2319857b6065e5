package models

import "time"

// PostingHistory records one publish attempt of a post to a page.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	PageID         int64     `db:"page_id" json:"page_id"`
	Platform       Platform  `db:"platform" json:"platform"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (h *PostingHistory) Succeeded() bool {
	return h.ErrorMessage == ""
}
