package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"food-order-service/apperrors"
	"food-order-service/models"
	"food-order-service/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims carries only the user id. The role is looked up on every request so
// a demotion or deactivation takes effect immediately.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// Session is what register and login hand back to the caller.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"-"`
}

type AuthService struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	// dummyHash is compared against when the email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewAuthService(users store.UserStore, secret []byte, ttl time.Duration) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)
	return &AuthService{
		users:     users,
		secret:    secret,
		ttl:       ttl,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a non-admin account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, apperrors.Validation("a valid email is required")
	}
	if in.Password == "" {
		return nil, apperrors.Validation("password is required")
	}

	user, err := s.createUser(ctx, in, false)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, admin bool) (*models.User, error) {
	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.ErrDuplicateUser
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Address:      in.Address,
		IsAdmin:      admin,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials. Every failure is ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// AdminLogin is Login restricted to admin accounts.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, exp, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// IssueToken signs an HS256 token for user that expires after the configured TTL.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Authenticate validates token and loads the current user record behind it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid token")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}
	return user, nil
}

// ExpiresAt reports when a valid token stops being accepted.
func (s *AuthService) ExpiresAt(token string) (time.Time, error) {
	claims, err := s.parse(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

func (s *AuthService) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("no token provided")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

// RequireAdmin is the role gate for admin-only operations.
func RequireAdmin(user *models.User) error {
	if user == nil || !user.IsAdmin {
		return apperrors.Forbidden("admin access required")
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
// It reports whether a new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.createUser(ctx, RegisterInput{Name: name, Email: email, Password: password}, true); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateUser) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
