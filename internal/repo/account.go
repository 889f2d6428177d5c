package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormRepo) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acc models.Account
	err := r.DB.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", normalizeEmail(email)).
		First(&acc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (r *GormRepo) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acc models.Account
	if err := r.DB.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&acc).Error; err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

// LockAccount takes the account row lock on backends that have one. Every
// refresh token mutation locks the owning account first, so concurrent logins
// and refreshes of one account queue on the same row.
func (r *GormRepo) LockAccount(ctx context.Context, id uuid.UUID) error {
	var acc models.Account
	err := forUpdate(r.DB.WithContext(ctx)).Select("id").Where("id = ?", id).First(&acc).Error
	return translate(err)
}

// CreateAccount inserts the account and its role rows in one transaction.
// A taken email yields ErrDuplicate.
func (r *GormRepo) CreateAccount(ctx context.Context, acc *models.Account) error {
	acc.Email = normalizeEmail(acc.Email)
	return r.Transaction(ctx, func(tx *GormRepo) error {
		var count int64
		if err := tx.DB.Model(&models.Account{}).Where("email = ?", acc.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("email %s: %w", acc.Email, ErrDuplicate)
		}
		if err := tx.DB.Create(acc).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

func (r *GormRepo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.DB.Where("account_id = ?", id).Delete(&models.AccountRole{}).Error; err != nil {
			return err
		}
		res := tx.DB.Delete(&models.Account{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
