package users

import (
	"context"
	"fmt"

	"github.com/oagudo/txscope"
)

var (
	userMapper    = txscope.MustStructMapper[User]("id", "account", "password", "email")
	historyMapper = txscope.MustStructMapper[UserHistory]("id", "user_id", "account", "password", "email", "created_at", "created_by")
)

// UserDao reads and writes the users table.
type UserDao struct {
	exec *txscope.Executor
}

// NewUserDao creates a UserDao issuing statements through exec.
func NewUserDao(exec *txscope.Executor) *UserDao {
	return &UserDao{exec: exec}
}

// Insert stores a new user. The id is assigned by the database.
func (d *UserDao) Insert(ctx context.Context, u User) error {
	_, err := d.exec.Exec(ctx, "INSERT INTO users (account, password, email) VALUES (?, ?, ?)",
		u.Account, u.Password, u.Email)
	if err != nil {
		return fmt.Errorf("inserting user %q: %w", u.Account, err)
	}
	return nil
}

// Update overwrites the stored user with the same id.
// It returns ErrUserNotFound when no row matches.
func (d *UserDao) Update(ctx context.Context, u User) error {
	n, err := d.exec.Exec(ctx, "UPDATE users SET account = ?, password = ?, email = ? WHERE id = ?",
		u.Account, u.Password, u.Email, u.ID)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindAll returns every user ordered by id.
func (d *UserDao) FindAll(ctx context.Context) ([]User, error) {
	return txscope.Query(ctx, d.exec, "SELECT id, account, password, email FROM users ORDER BY id", userMapper)
}

// FindByID returns the user with the given id; found is false when there is none.
func (d *UserDao) FindByID(ctx context.Context, id int64) (User, bool, error) {
	return txscope.QueryOne(ctx, d.exec, "SELECT id, account, password, email FROM users WHERE id = ?", userMapper, id)
}

// FindByAccount returns the first user with the given account name.
func (d *UserDao) FindByAccount(ctx context.Context, account string) (User, bool, error) {
	return txscope.QueryOne(ctx, d.exec, "SELECT id, account, password, email FROM users WHERE account = ?", userMapper, account)
}

// UserHistoryDao appends to and reads the user_history table.
type UserHistoryDao struct {
	exec *txscope.Executor
}

// NewUserHistoryDao creates a UserHistoryDao issuing statements through exec.
func NewUserHistoryDao(exec *txscope.Executor) *UserHistoryDao {
	return &UserHistoryDao{exec: exec}
}

// Log appends a history entry.
func (d *UserHistoryDao) Log(ctx context.Context, h UserHistory) error {
	_, err := d.exec.Exec(ctx,
		"INSERT INTO user_history (user_id, account, password, email, created_at, created_by) VALUES (?, ?, ?, ?, ?, ?)",
		h.UserID, h.Account, h.Password, h.Email, h.CreatedAt, h.CreatedBy)
	if err != nil {
		return fmt.Errorf("logging history of user %d: %w", h.UserID, err)
	}
	return nil
}

// FindByUserID returns the history of a user, oldest first.
func (d *UserHistoryDao) FindByUserID(ctx context.Context, userID int64) ([]UserHistory, error) {
	return txscope.Query(ctx, d.exec,
		"SELECT id, user_id, account, password, email, created_at, created_by FROM user_history WHERE user_id = ? ORDER BY id",
		historyMapper, userID)
}
