package models

import "time"

// User is the slice of the external identity system this service reads:
// enough to address, display and filter message counterparts.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	IsSuspended bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRef is the compact identity embedded in messages and conversations.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the shape returned by counterpart search.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
