// Package auth отвечает за вход администратора и проверку JWT для API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"amcdesk/internal/logs"
	"amcdesk/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminOnly          = errors.New("Admin access only")
	ErrUnauthorized       = errors.New("authentication required")
)

// Users: то, что нужно сервису от хранилища пользователей.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Claims: содержимое токена администратора.
type Claims struct {
	Email    string          `json:"email"`
	UserType models.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

type Service struct {
	users  Users
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Entry
}

func NewService(users Users, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: []byte(secret), ttl: ttl, now: time.Now, log: logs.Component("auth")}
}

// Login проверяет пароль и тип учётной записи; в панель пускаются только администраторы.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || u.PasswordHash == "" {
		s.log.WithField("email", email).Info("login rejected: unknown user")
		return "", nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(u.PasswordHash, password)
	if err != nil || !ok {
		s.log.WithField("user_id", u.ID).Info("login rejected: bad password")
		return "", nil, ErrInvalidCredentials
	}
	if u.UserType != models.UserAdmin {
		s.log.WithField("user_id", u.ID).Warn("login rejected: not an admin")
		return "", nil, ErrAdminOnly
	}
	tok, err := s.Issue(u)
	if err != nil {
		return "", nil, err
	}
	s.log.WithField("user_id", u.ID).Info("admin logged in")
	return tok, u, nil
}

// Issue подписывает HS256-токен для пользователя.
func (s *Service) Issue(u *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email:    u.Email,
		UserType: u.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, срок и тип учётной записи.
func (s *Service) Parse(token string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if c.UserType != models.UserAdmin {
		return nil, ErrAdminOnly
	}
	return &c, nil
}

type ctxKey struct{}

// FromContext: claims текущего запроса, если он прошёл Require.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// Require пропускает только запросы с валидным Authorization: Bearer <jwt>.
func (s *Service) Require() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, p) {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized.Error(), nil)
				return
			}
			c, err := s.Parse(strings.TrimSpace(strings.TrimPrefix(h, p)))
			switch {
			case errors.Is(err, ErrAdminOnly):
				models.WriteProblem(w, http.StatusForbidden, "Forbidden", err.Error(), nil)
				return
			case err != nil:
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized.Error(), nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}
