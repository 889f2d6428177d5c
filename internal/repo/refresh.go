package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/hash"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

const activeRefresh = "is_used = ? AND is_revoked = ?"

// IssueRefreshToken revokes every active refresh token of the account and
// stores a fresh one paired with jwtID. The plaintext token is returned once;
// only its SHA-256 digest is persisted.
func (r *GormRepo) IssueRefreshToken(ctx context.Context, accountID uuid.UUID, jwtID string, now time.Time, ttl time.Duration) (string, *models.RefreshToken, error) {
	plain := tokens.NewRefreshToken()
	row := models.RefreshToken{
		TokenHash:  hash.Sha256Hex(plain),
		JwtID:      jwtID,
		AddedDate:  now.UTC(),
		ExpiryDate: now.Add(ttl).UTC(),
		AccountID:  accountID,
	}

	err := r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}

		if err := tx.DB.Model(&models.RefreshToken{}).
			Where("account_id = ?", accountID).
			Where(activeRefresh, false, false).
			Update("is_revoked", true).Error; err != nil {
			return err
		}

		return tx.DB.Create(&row).Error
	})
	if err != nil {
		return "", nil, err
	}
	return plain, &row, nil
}

// LookupRefreshToken returns the token only while it is neither used nor
// revoked. Unknown, used and revoked tokens all yield ErrNotFound. The read
// takes no lock; callers lock the owning account and then rely on
// MarkRefreshTokenUsed re-checking the state.
func (r *GormRepo) LookupRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("token_hash = ?", hash.Sha256Hex(token)).
		Where(activeRefresh, false, false).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// MarkRefreshTokenUsed flips an active token to used+revoked. It reports false
// when the token was unknown or already inactive, so of two racing callers
// only one observes true.
func (r *GormRepo) MarkRefreshTokenUsed(ctx context.Context, token string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash.Sha256Hex(token)).
		Where(activeRefresh, false, false).
		Updates(map[string]any{"is_used": true, "is_revoked": true})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeRefreshToken is idempotent; unknown tokens are ignored.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash.Sha256Hex(token)).
		Update("is_revoked", true).Error
}

// FindRefreshToken returns the row for token regardless of its state.
func (r *GormRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token_hash = ?", hash.Sha256Hex(token)).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *GormRepo) CountActiveRefreshTokens(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("account_id = ?", accountID).
		Where(activeRefresh, false, false).
		Count(&n).Error
	return n, err
}
