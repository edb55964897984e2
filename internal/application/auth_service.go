package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/internal/domain/entity"
	repo "github.com/oksasatya/inkwell/internal/domain/repository"
	"github.com/oksasatya/inkwell/pkg/helpers"
	"github.com/oksasatya/inkwell/pkg/validation"
)

// dummyPassword feeds the digest compared against when a login email is unknown.
const dummyPassword = "inkwell-timing-equalizer"

const maxPasswordBytes = 72

type AuthService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Hasher *helpers.PasswordHasher
	Logger *logrus.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// AuthResult is the shared success shape of register, login and refresh.
type AuthResult struct {
	User      entity.SafeUser `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func NewAuthService(repo repo.UserRepository, jwt *helpers.JWTManager, hasher *helpers.PasswordHasher, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AuthService{Repo: repo, JWT: jwt, Hasher: hasher, Logger: logger}
}

// Register creates an identity for email/password and signs a token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = entity.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Email: email, Password: digest}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.Logger.WithField("user_id", u.ID).Info("user registered")
	return s.issue(u)
}

// Login checks credentials. Unknown email and wrong password both yield
// ErrInvalidCredentials after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = entity.NormalizeEmail(email)
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		if _, vErr := s.Hasher.Verify(password, s.dummy()); vErr != nil {
			return nil, fmt.Errorf("verify password: %w", vErr)
		}
		return nil, ErrInvalidCredentials
	}
	ok, err := s.Hasher.Verify(password, u.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Me resolves the identity behind an already-verified token subject.
func (s *AuthService) Me(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Refresh signs a fresh token for the same subject. Concurrent refreshes are
// independent; older tokens stay valid until they expire.
func (s *AuthService) Refresh(ctx context.Context, userID int64) (*AuthResult, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.JWT.Issue(u.ID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("sign token failed")
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: u.Safe(), Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		d, err := s.Hasher.Hash(dummyPassword)
		if err != nil {
			s.Logger.WithError(err).Warn("dummy digest unavailable")
			return
		}
		s.dummyDigest = d
	})
	return s.dummyDigest
}

func validateCredentials(email, password string) error {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "is required"
	} else if err := validation.Var(email, "mailaddr"); err != nil {
		fields["email"] = "must be a valid email"
	}
	if err := validation.Var(password, "pwd"); err != nil || len(password) > maxPasswordBytes {
		fields["password"] = "must be between 6 and 72 characters long"
	}
	if len(fields) > 0 {
		return newValidationError(fields)
	}
	return nil
}
