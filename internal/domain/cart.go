package domain

import "time"

type CartItem struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	CourseID int64     `json:"course_id"`
	AddedAt  time.Time `json:"added_at"`
	Course   *Course   `json:"course,omitempty"`
}
