package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autocreateur/ticketd/pkg/ledger"
	"golang.org/x/crypto/bcrypt"
)

const (
	// New accounts are granted a starting ticket balance; the ledger
	// replays from this value, so no grant event is written for it.
	startingTicketBalance = 100

	minPasswordLength = 8
	defaultSessionTTL = 24 * time.Hour
)

// Config holds the directory's runtime settings.
type Config struct {
	SigningKey []byte
	Issuer     string
	SessionTTL time.Duration
}

// Service is the single source of truth for actor identity, admin rights
// and ban status.
type Service struct {
	store      Store
	signingKey []byte
	issuer     string
	sessionTTL time.Duration
	nowFn      func() time.Time
}

// NewService wires a directory Service.
func NewService(store Store, cfg Config, now func() time.Time) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidDirectoryConfig)
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidDirectoryConfig)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("%w: issuer is required", ErrInvalidDirectoryConfig)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidDirectoryConfig)
	}
	return &Service{
		store:      store,
		signingKey: cfg.SigningKey,
		issuer:     cfg.Issuer,
		sessionTTL: cfg.SessionTTL,
		nowFn:      now,
	}, nil
}

// Register creates a profile with the policy starting balance.
func (service *Service) Register(ctx context.Context, email string, displayName string, password string) (Profile, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" || !strings.Contains(normalizedEmail, "@") {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if len(password) < minPasswordLength {
		return Profile{}, fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}
	return service.store.CreateProfile(ctx, NewProfile{
		Email:           normalizedEmail,
		DisplayName:     strings.TrimSpace(displayName),
		PasswordHash:    string(hash),
		StartingBalance: startingTicketBalance,
	})
}

// Authenticate verifies credentials and issues a session token.
func (service *Service) Authenticate(ctx context.Context, email string, password string) (Session, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	profile, passwordHash, err := service.store.GetCredential(ctx, normalizedEmail)
	if err != nil {
		return Session{}, fmt.Errorf("%w: unknown email", ErrUnauthenticated)
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return Session{}, fmt.Errorf("%w: wrong password", ErrUnauthenticated)
	}
	token, expiresAt, err := service.issueToken(profile.AccountID, service.nowFn())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Profile: profile, ExpiresAt: expiresAt}, nil
}

// ResolveActor maps a bearer token to a ledger actor. Flags are read from
// the store, not the token, so bans and role changes apply immediately.
func (service *Service) ResolveActor(ctx context.Context, token string) (ledger.Actor, Profile, error) {
	subject, err := service.parseToken(token)
	if err != nil {
		return ledger.Actor{}, Profile{}, err
	}
	profile, err := service.store.GetProfile(ctx, subject)
	if err != nil {
		return ledger.Actor{}, Profile{}, fmt.Errorf("%w: profile lookup failed", ErrUnauthenticated)
	}
	if profile.Anonymized {
		return ledger.Actor{}, Profile{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrProfileAnonymized)
	}
	accountID, err := ledger.NewAccountID(profile.AccountID)
	if err != nil {
		return ledger.Actor{}, Profile{}, err
	}
	return ledger.Actor{AccountID: accountID, IsAdmin: profile.IsAdmin}, profile, nil
}

// GetProfile returns one profile by account id.
func (service *Service) GetProfile(ctx context.Context, accountID string) (Profile, error) {
	return service.store.GetProfile(ctx, accountID)
}

// ListProfiles returns every profile; admin only.
func (service *Service) ListProfiles(ctx context.Context, actor ledger.Actor) ([]Profile, error) {
	if !actor.IsAdmin {
		return nil, ledger.ErrForbidden
	}
	return service.store.ListProfiles(ctx)
}

// SetBanned flips the ban flag; admin only.
func (service *Service) SetBanned(ctx context.Context, accountID string, banned bool, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	return service.store.SetBanned(ctx, accountID, banned)
}

// Anonymize blanks a profile's identity and bans the account while keeping
// its ledger history intact. Hard deletion of accounts with events is not
// offered.
func (service *Service) Anonymize(ctx context.Context, accountID string, actor ledger.Actor) error {
	if !actor.IsAdmin {
		return ledger.ErrForbidden
	}
	return service.store.Anonymize(ctx, accountID)
}

// StartingBalance exposes the account creation grant policy.
func StartingBalance() int64 {
	return startingTicketBalance
}
