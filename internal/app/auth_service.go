package app

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizhub/internal/domain"
)

// UserStore abstracts account persistence.
type UserStore interface {
	// CreateUser returns a conflict error when the email is already taken
	// (store-level unique constraint, not check-then-create).
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, userID string) (domain.User, error)
}

// TokenDenylist is the shared revocation set. Entries carry a TTL equal to
// the token's remaining validity so they expire with the token.
type TokenDenylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type authClaims struct {
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

// AuthService issues, verifies and revokes session tokens.
type AuthService struct {
	users    UserStore
	denylist TokenDenylist
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users UserStore, denylist TokenDenylist, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		denylist: denylist,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// SignUp registers an account and returns it with a fresh token.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (domain.User, string, error) {
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", domain.Validation("name, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", err
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// LogIn checks credentials and returns the account with a fresh token.
func (s *AuthService) LogIn(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.User{}, "", domain.Unauthorized("invalid credentials")
		}
		return domain.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, "", domain.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// LogOut verifies the token and adds it to the denylist for the remainder of
// its lifetime. Revoked and expired tokens are both rejected afterwards.
func (s *AuthService) LogOut(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	return s.denylist.Revoke(ctx, token, ttl)
}

// Authenticate resolves a bearer token into a caller identity, rejecting
// revoked tokens.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	revoked, err := s.denylist.IsRevoked(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	if revoked {
		return domain.Identity{}, domain.Unauthorized("token has been revoked")
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: claims.Subject, IsAdmin: claims.IsAdmin}, nil
}

func (s *AuthService) issueToken(user domain.User) (string, error) {
	now := s.now()
	claims := &authClaims{
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) parseToken(token string) (*authClaims, error) {
	claims := &authClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, domain.Unauthorized("invalid or expired token")
	}
	return claims, nil
}
