package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Active() bool {
	return u.Status == UserActive
}

// Actor is the authenticated identity on whose behalf an operation runs.
type Actor struct {
	ID   string
	Role Role
}

// AuthEvent is one row of the authentication audit log.
type AuthEvent struct {
	ID        int64
	UserID    string
	Email     string
	Action    AuthAction
	Reason    string
	Host      string
	CreatedAt time.Time
}

// UserMetrics summarizes the account base for the admin dashboard.
type UserMetrics struct {
	Total    int
	Active   int
	Inactive int
	ByRole   map[Role]int
}
