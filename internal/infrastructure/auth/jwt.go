package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultCookieName = "auth_token"
	minSecretLength   = 16
)

var (
	ErrMissingToken = errors.New("missing auth token")
	ErrInvalidToken = errors.New("invalid auth token")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
)

// Claims is the token issued by the sign-in service.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	IsTester bool   `json:"isTester"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

func NewVerifier(secret, cookieName string) (*Verifier, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Verifier{
		secret:     []byte(secret),
		cookieName: cookieName,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *Verifier) Parse(token string) (*domain.User, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &domain.User{
		ID:       userID,
		Username: claims.Username,
		Avatar:   claims.Avatar,
		IsAdmin:  claims.IsAdmin,
		IsTester: claims.IsTester,
	}, nil
}

// Issue signs a token for user. The server only verifies tokens; Issue
// exists for tooling and tests.
func (v *Verifier) Issue(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
		IsAdmin:  user.IsAdmin,
		IsTester: user.IsTester,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// FromRequest reads the token from the auth cookie, falling back to a
// Bearer header.
func (v *Verifier) FromRequest(r *http.Request) (*domain.User, error) {
	token := ""
	if cookie, err := r.Cookie(v.cookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	return v.Parse(token)
}

type contextKey struct{}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*domain.User)
	return user, ok && user != nil
}
