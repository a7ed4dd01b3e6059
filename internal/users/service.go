package users

import (
	"context"

	"github.com/oagudo/txscope"
	"github.com/sirupsen/logrus"
)

// Service implements the user operations on top of the DAOs.
type Service struct {
	users   *UserDao
	history *UserHistoryDao
	txm     *txscope.TxManager
	log     logrus.FieldLogger
}

// NewService creates a Service. txm must share its source with the DAOs' executors.
func NewService(users *UserDao, history *UserHistoryDao, txm *txscope.TxManager, log logrus.FieldLogger) *Service {
	return &Service{
		users:   users,
		history: history,
		txm:     txm,
		log:     log,
	}
}

// FindByID returns the user with the given id, or ErrUserNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (User, error) {
	u, found, err := s.users.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// FindAll returns every user.
func (s *Service) FindAll(ctx context.Context) ([]User, error) {
	return s.users.FindAll(ctx)
}

// Insert stores a new user.
func (s *Service) Insert(ctx context.Context, u User) error {
	return s.users.Insert(ctx, u)
}

// History returns the password history of a user.
func (s *Service) History(ctx context.Context, userID int64) ([]UserHistory, error) {
	return s.history.FindByUserID(ctx, userID)
}

// ChangePassword updates the password of a user and records the change in
// the user history. Both writes commit together or not at all.
func (s *Service) ChangePassword(ctx context.Context, id int64, password, createdBy string) error {
	err := s.txm.Run(ctx, func(ctx context.Context) error {
		u, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}

		u.ChangePassword(password)
		if err := s.users.Update(ctx, u); err != nil {
			return err
		}

		return s.history.Log(ctx, NewUserHistory(u, createdBy))
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", id).Error("changing password")
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "created_by": createdBy}).Info("password changed")
	return nil
}
