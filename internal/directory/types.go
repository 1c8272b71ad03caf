package directory

import (
	"context"
	"time"
)

// Profile is the directory's view of a registered user. Admin and banned
// flags live here and nowhere else; every privileged operation resolves
// them through this package.
type Profile struct {
	AccountID      string
	Email          string
	DisplayName    string
	IsAdmin        bool
	IsBanned       bool
	Tickets        int64
	Anonymized     bool
	CreatedUnixUTC int64
}

// NewProfile carries the fields of a profile to be created.
type NewProfile struct {
	Email           string
	DisplayName     string
	PasswordHash    string
	StartingBalance int64
}

// Session is an issued authentication token with its resolved profile.
type Session struct {
	Token     string
	Profile   Profile
	ExpiresAt time.Time
}

// Store is the persistence contract used by the directory.
type Store interface {
	CreateProfile(ctx context.Context, input NewProfile) (Profile, error)
	GetProfile(ctx context.Context, accountID string) (Profile, error)
	GetCredential(ctx context.Context, email string) (Profile, string, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	SetBanned(ctx context.Context, accountID string, banned bool) error
	Anonymize(ctx context.Context, accountID string) error
}
