package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dokupintar/dokubot-be/repository"
	"github.com/dokupintar/dokubot-be/types"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type UserService interface {
	CreateUser(ctx context.Context, user *types.User) error
	BatchCreateUser(ctx context.Context, users []*types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	Authenticate(ctx context.Context, username, password string) (*types.User, error)
	UpdateUser(ctx context.Context, id string, user *types.User) error
	DeleteUser(ctx context.Context, id string) error
	PaginateUser(ctx context.Context, page, limit int64) ([]*types.User, int64, error)
}

type userService struct {
	repo repository.UserRepo
}

func NewUserService(repo repository.UserRepo) UserService {
	return &userService{
		repo: repo,
	}
}

func (s *userService) CreateUser(ctx context.Context, user *types.User) error {
	hashed, err := hashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = hashed
	if user.Role == "" {
		user.Role = types.USER_ROLE_USER
	}
	user.CreateAt = time.Now().Unix()
	user.UpdateAt = time.Now().Unix()
	return s.repo.CreateUser(ctx, user)
}

func (s *userService) BatchCreateUser(ctx context.Context, users []*types.User) error {
	for _, user := range users {
		hashed, err := hashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", user.Username, err)
		}
		user.Password = hashed
		if user.Role == "" {
			user.Role = types.USER_ROLE_USER
		}
		user.CreateAt = time.Now().Unix()
		user.UpdateAt = time.Now().Unix()
	}
	return s.repo.BatchCreateUser(ctx, users)
}

func (s *userService) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

// Authenticate returns ErrInvalidCredentials for both unknown usernames
// and wrong passwords, so callers cannot probe which usernames exist.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*types.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, types.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, user *types.User) error {
	dbUser, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Username != "" {
		dbUser.Username = user.Username
	}
	if user.Password != "" {
		hashed, err := hashPassword(user.Password)
		if err != nil {
			return err
		}
		dbUser.Password = hashed
	}
	if user.FullName != "" {
		dbUser.FullName = user.FullName
	}
	if user.Role != "" {
		dbUser.Role = user.Role
	}
	dbUser.UpdateAt = time.Now().Unix()
	return s.repo.UpdateUser(ctx, id, dbUser)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *userService) PaginateUser(ctx context.Context, page, limit int64) ([]*types.User, int64, error) {
	return s.repo.PaginateUser(ctx, page, limit)
}

func hashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
