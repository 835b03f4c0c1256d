package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatsync/backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// UserLookup is the slice of the store the resolver needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// Resolver turns a bearer credential into a known user.
type Resolver struct {
	secret []byte
	issuer string
	users  UserLookup
	now    func() time.Time
}

func NewResolver(secret, issuer string, users UserLookup) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		now:    time.Now,
	}
}

// IssueToken signs a token for userID valid for ttl.
func (r *Resolver) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := r.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve verifies the credential and loads its user. Every failure wraps
// models.ErrAuthFailure.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*models.User, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing token", models.ErrAuthFailure)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", models.ErrAuthFailure)
		}
		return nil, fmt.Errorf("%w: invalid token", models.ErrAuthFailure)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no subject", models.ErrAuthFailure)
	}

	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", models.ErrAuthFailure)
		}
		return nil, err
	}
	return user, nil
}

// TokenFromRequest reads the credential from the "token" or "auth" query
// parameter, falling back to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	q := r.URL.Query()
	if token := q.Get("token"); token != "" {
		return token
	}
	if token := q.Get("auth"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
