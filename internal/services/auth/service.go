package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/joyverse/joyverse-backend/internal/dependencies/clock"
	"github.com/joyverse/joyverse-backend/internal/dependencies/ids"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/notify"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/validation"
)

// Claims is the JWT payload issued at login
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Session is a token issued to an authenticated user
type Session struct {
	Token     string
	User      *model.User
	ExpiresAt time.Time
}

// Principal is the identity carried by a valid token
type Principal struct {
	UserID    model.UserID
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// SignupInput holds the fields accepted when creating a user. Role
// dependent rules follow the signup form: therapists need an email and
// children need parent details and an age.
type SignupInput struct {
	Username      string     `json:"username" validate:"required,username"`
	Password      string     `json:"password" validate:"required,min=6,max=72"`
	Role          model.Role `json:"role" validate:"required,oneof=user therapist admin"`
	Email         string     `json:"email" validate:"required_if=Role therapist,omitempty,email"`
	ParentName    string     `json:"parent_name" validate:"required_if=Role user,omitempty,max=100"`
	ParentContact string     `json:"parent_contact" validate:"required_if=Role user,omitempty,numeric,len=10"`
	ChildAge      int        `json:"child_age" validate:"required_if=Role user,omitempty,min=3,max=12"`
}

// Service handles accounts and bearer tokens
type Service struct {
	storage  storage.UserStore
	clock    clock.Clock
	ids      ids.Generator
	notifier notify.Notifier
	logger   *slog.Logger

	secret   []byte
	tokenTTL time.Duration
	issuer   string

	// revoked maps token ids to their expiry; entries go once the token
	// would have expired anyway
	mu      sync.Mutex
	revoked map[string]time.Time
}

// Config holds configuration for the auth service
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:   "joyverse-dev-secret",
		TokenTTL: 24 * time.Hour,
		Issuer:   "joyverse",
	}
}

// New creates a new auth Service
func New(store storage.UserStore, clock clock.Clock, ids ids.Generator, notifier notify.Notifier, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	return &Service{
		storage:  store,
		clock:    clock,
		ids:      ids,
		notifier: notifier,
		logger:   logger,
		secret:   []byte(cfg.Secret),
		tokenTTL: cfg.TokenTTL,
		issuer:   cfg.Issuer,
		revoked:  make(map[string]time.Time),
	}
}

// Register creates a user account. Admin accounts cannot be created this
// way; see EnsureAdmin.
func (s *Service) Register(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Role = model.Role(strings.ToLower(strings.TrimSpace(string(in.Role))))
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Role == model.RoleAdmin {
		return nil, fmt.Errorf("admin signup: %w", model.ErrNotPermitted)
	}
	return s.create(ctx, in)
}

// EnsureAdmin creates the admin account if the username is free. An
// existing account with that name is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, email string) (*model.User, error) {
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			s.logger.WarnContext(ctx, "bootstrap admin username belongs to another role",
				"username", username, "role", existing.Role)
		}
		return existing, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	u, err := s.create(ctx, SignupInput{
		Username: username,
		Password: password,
		Role:     model.RoleAdmin,
		Email:    email,
	})
	if errors.Is(err, model.ErrUsernameTaken) {
		// Another instance created it first
		return s.storage.GetUserByUsername(ctx, username)
	}
	return u, err
}

func (s *Service) create(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           model.UserID(s.ids.NewID()),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		Profile: model.Profile{
			Email:         in.Email,
			ParentName:    in.ParentName,
			ParentContact: in.ParentContact,
			ChildAge:      in.ChildAge,
		},
		IsApproved:     in.Role.ApprovedOnCreate(),
		SuggestedGames: []string{},
		Emotions:       []model.EmotionLog{},
		GamePlays:      []model.GamePlay{},
		CreatedAt:      s.clock.Now(),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created",
		"user_id", user.ID,
		"username", user.Username,
		"role", user.Role,
		"approved", user.IsApproved,
	)

	if user.Approval() == model.ApprovalPending {
		if err := s.notifier.TherapistPending(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "pending approval notification failed", "username", user.Username, "error", err)
		}
	}
	return user, nil
}

// Login checks credentials and issues a token. An unknown username is
// NotFound and a wrong password is Unauthorized. A therapist awaiting
// approval is Forbidden, but only once the password has been verified.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.storage.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if user.Approval() == model.ApprovalPending {
		return nil, model.ErrApprovalPending
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return session, nil
}

func (s *Service) issue(user *model.User) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ids.NewID(),
			Subject:   string(user.ID),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		User:      user,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate verifies a token and returns its principal
func (s *Service) Validate(token string) (*Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, model.ErrInvalidToken
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, model.ErrInvalidToken
	}

	return &Principal{
		UserID:    model.UserID(claims.Subject),
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token until it expires
func (s *Service) Logout(token string) error {
	p, err := s.Validate(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[p.TokenID] = p.ExpiresAt
	s.mu.Unlock()
	return nil
}

// PruneRevoked forgets revocations of tokens that have expired (call periodically)
func (s *Service) PruneRevoked() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, expiresAt := range s.revoked {
		if !now.Before(expiresAt) {
			delete(s.revoked, id)
			pruned++
		}
	}
	return pruned
}

// RunPruner calls PruneRevoked every interval until ctx is done
func (s *Service) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PruneRevoked(); n > 0 {
				s.logger.Debug("pruned revoked tokens", "count", n)
			}
		}
	}
}
