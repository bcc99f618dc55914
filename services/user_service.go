package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// ErrBadCredentials is returned by Authenticate for an unknown user or a
// wrong password alike.
var ErrBadCredentials = errors.New("invalid username or password")

// RegisterInput holds sign-up fields.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UserService registers and authenticates users.
type UserService struct {
	store
}

func NewUserService(db *gorm.DB, timeout time.Duration) *UserService {
	return &UserService{store: newStore(db, timeout)}
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if !utils.ValidUsername(in.Username) {
		return models.User{}, fmt.Errorf("%w: invalid username", utils.ErrInvalidArgument)
	}
	if !utils.ValidPassword(in.Password) {
		return models.User{}, fmt.Errorf("%w: password must be 8-72 characters", utils.ErrInvalidArgument)
	}

	db, cancel := s.bound(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
		return models.User{}, storeErr(err, "check username")
	}
	if n > 0 {
		return models.User{}, fmt.Errorf("%w: username %q already taken", utils.ErrInvalidOperation, in.Username)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    utils.Sanitize(in.FirstName),
		LastName:     utils.Sanitize(in.LastName),
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, storeErr(err, "create user")
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate checks a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.userByHandle(db, strings.TrimSpace(username))
	if errors.Is(err, utils.ErrNotFound) {
		return models.User{}, ErrBadCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrBadCredentials
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *UserService) GetUser(ctx context.Context, id uint) (models.User, error) {
	db, cancel := s.bound(ctx)
	defer cancel()

	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return models.User{}, storeErr(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

// GetByHandle loads a user by username.
func (s *UserService) GetByHandle(ctx context.Context, handle string) (models.User, error) {
	db, cancel := s.bound(ctx)
	defer cancel()
	return s.userByHandle(db, handle)
}
