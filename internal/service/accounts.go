package service

import (
	"context"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(identity models.Identity) (string, time.Time, error)
}

// Session is a signed-in user together with the bearer token issued for them.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type AccountService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewAccountService(users UserStore, hasher PasswordHasher, tokens TokenIssuer) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:        uuid.New().String(),
		Username:  strings.ToLower(strings.TrimSpace(req.Username)),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return nil, errors.Storage(err)
	}
	return s.session(&user)
}

func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*Session, error) {
	login := req.Login()
	if login == "" {
		return nil, errors.ErrInvalidCredentials
	}
	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.Storage(err)
	}
	if err := s.hasher.Compare(user.Password, req.Password); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *AccountService) Profile(ctx context.Context, identity models.Identity) (*models.User, error) {
	if identity.UserID == "" {
		return nil, errors.ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return user, nil
}

// UpdateProfile changes the given fields and returns a fresh session, since the
// token claims carry username and email.
func (s *AccountService) UpdateProfile(ctx context.Context, identity models.Identity, req models.UpdateUserRequest) (*Session, error) {
	if identity.UserID == "" {
		return nil, errors.ErrUnauthorized
	}
	patch := models.UserPatch{
		Username:  lowered(req.Username),
		Email:     lowered(req.Email),
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
	}
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = &hash
	}

	var (
		user *models.User
		err  error
	)
	if patch.IsEmpty() {
		user, err = s.users.GetUserByID(ctx, identity.UserID)
	} else {
		user, err = s.users.UpdateUser(ctx, identity.UserID, patch)
	}
	if err != nil {
		return nil, errors.Storage(err)
	}
	return s.session(user)
}

// DeleteAccount removes the user and, with it, every task they own.
func (s *AccountService) DeleteAccount(ctx context.Context, identity models.Identity) error {
	if identity.UserID == "" {
		return errors.ErrUnauthorized
	}
	if err := s.users.DeleteUser(ctx, identity.UserID); err != nil {
		return errors.Storage(err)
	}
	return nil
}

func (s *AccountService) session(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func lowered(v string) *string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	return &v
}

func trimmed(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
