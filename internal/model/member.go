package model

import "time"

// Member stores the email a user registered with and the derived membership flag.
type Member struct {
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	IsMember  bool      `json:"isMember" db:"is_member"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MemberRequest registers or updates a user's email.
type MemberRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}
