package model

import "time"

// Draft 用户保存的回复草稿
type Draft struct {
	ID      string    `json:"id"`
	EmailID string    `json:"email_id,omitempty"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SavedAt time.Time `json:"saved_at"`
}
