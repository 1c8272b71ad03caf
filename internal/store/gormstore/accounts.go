package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/autocreateur/ticketd/internal/directory"
	"gorm.io/gorm"
)

// CreateProfile inserts an account row with the policy starting balance.
func (store *Store) CreateProfile(ctx context.Context, input directory.NewProfile) (directory.Profile, error) {
	email := input.Email
	model := Account{
		Email:           &email,
		DisplayName:     input.DisplayName,
		PasswordHash:    input.PasswordHash,
		Balance:         input.StartingBalance,
		StartingBalance: input.StartingBalance,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return directory.Profile{}, directory.ErrEmailTaken
		}
		return directory.Profile{}, wrapStoreError(errorSubjectAccount, errorCodeInsert, err)
	}
	return mapProfile(model), nil
}

// GetProfile returns the profile for one account id.
func (store *Store) GetProfile(ctx context.Context, accountID string) (directory.Profile, error) {
	var model Account
	err := store.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return directory.Profile{}, directory.ErrProfileNotFound
		}
		return directory.Profile{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapProfile(model), nil
}

// GetCredential returns the profile and password hash for an email.
func (store *Store) GetCredential(ctx context.Context, email string) (directory.Profile, string, error) {
	var model Account
	err := store.db.WithContext(ctx).Where("email = ?", email).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return directory.Profile{}, "", directory.ErrProfileNotFound
		}
		return directory.Profile{}, "", wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapProfile(model), model.PasswordHash, nil
}

// ListProfiles returns every account, oldest first.
func (store *Store) ListProfiles(ctx context.Context) ([]directory.Profile, error) {
	var rows []Account
	if err := store.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	profiles := make([]directory.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, mapProfile(row))
	}
	return profiles, nil
}

// SetBanned flips the ban flag on an account.
func (store *Store) SetBanned(ctx context.Context, accountID string, banned bool) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ?", accountID).
		Update("is_banned", banned)
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return directory.ErrProfileNotFound
	}
	return nil
}

// Anonymize strips the account's identity and bans it. The row itself and
// all ledger events stay, so replay and audit remain possible.
func (store *Store) Anonymize(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ? AND anonymized_at IS NULL", accountID).
		Updates(map[string]any{
			"email":         nil,
			"display_name":  "",
			"password_hash": "",
			"is_banned":     true,
			"anonymized_at": now,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return directory.ErrProfileNotFound
	}
	return nil
}

func mapProfile(model Account) directory.Profile {
	email := ""
	if model.Email != nil {
		email = *model.Email
	}
	return directory.Profile{
		AccountID:      model.AccountID,
		Email:          email,
		DisplayName:    model.DisplayName,
		IsAdmin:        model.IsAdmin,
		IsBanned:       model.IsBanned,
		Tickets:        model.Balance,
		Anonymized:     model.AnonymizedAt != nil,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}
}
