package user

import "time"

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Password        string    `json:"-"` // never return
	Role            string    `json:"role"`
	Rank            string    `json:"rank"`
	XP              int64     `json:"xp"`
	PriorityPenalty int       `json:"priority_penalty"`
	Bio             string    `json:"bio,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
