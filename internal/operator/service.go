package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(repo Repository, secret string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, secret: []byte(secret), tokenTTL: tokenTTL, now: time.Now}
}

// Register stores a new operator, hashing password unless it is already a
// bcrypt hash.
func (s *Service) Register(ctx context.Context, username, password string) error {
	hash := password
	if !looksLikeBcrypt(password) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}
	return s.repo.Create(ctx, Operator{Username: username, PasswordHash: hash, CreatedAt: s.now().UTC()})
}

// EnsureOperator registers username unless it already exists.
func (s *Service) EnsureOperator(ctx context.Context, username, password string) error {
	if err := s.Register(ctx, username, password); err != nil && !errors.Is(err, ErrExists) {
		return err
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (Operator, error) {
	op, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return Operator{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return Operator{}, ErrInvalidCredentials
	}
	return op, nil
}

// IssueToken signs an HS256 token whose subject is the operator's username.
func (s *Service) IssueToken(op Operator) (string, time.Time, error) {
	expires := s.now().Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub": op.Username,
		"iat": s.now().Unix(),
		"exp": expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func looksLikeBcrypt(value string) bool {
	return len(value) > 4 && value[0:2] == "$2"
}
