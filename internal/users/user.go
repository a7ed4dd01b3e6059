package users

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned when no user matches the requested id.
var ErrUserNotFound = errors.New("user not found")

// User is an account of the user store.
type User struct {
	ID       int64  `db:"id"`
	Account  string `db:"account"`
	Password string `db:"password"`
	Email    string `db:"email"`
}

// ChangePassword replaces the user's password.
func (u *User) ChangePassword(password string) {
	u.Password = password
}

// UserHistory is a snapshot of a user taken whenever its credentials change.
type UserHistory struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Account   string    `db:"account"`
	Password  string    `db:"password"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	CreatedBy string    `db:"created_by"`
}

// NewUserHistory snapshots u, recording createdBy as the author of the change.
func NewUserHistory(u User, createdBy string) UserHistory {
	return UserHistory{
		UserID:    u.ID,
		Account:   u.Account,
		Password:  u.Password,
		Email:     u.Email,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		CreatedBy: createdBy,
	}
}
