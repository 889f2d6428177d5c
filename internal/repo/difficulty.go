package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

func (r *GormRepo) ListDifficulties(ctx context.Context) ([]models.Difficulty, error) {
	var items []models.Difficulty
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetDifficulty(ctx context.Context, id uuid.UUID) (*models.Difficulty, error) {
	var d models.Difficulty
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *GormRepo) CreateDifficulty(ctx context.Context, d *models.Difficulty) error {
	return translate(r.DB.WithContext(ctx).Create(d).Error)
}

func (r *GormRepo) UpdateDifficulty(ctx context.Context, id uuid.UUID, name string) (*models.Difficulty, error) {
	res := r.DB.WithContext(ctx).Model(&models.Difficulty{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetDifficulty(ctx, id)
}

func (r *GormRepo) DeleteDifficulty(ctx context.Context, id uuid.UUID) (*models.Difficulty, error) {
	var out *models.Difficulty
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		d, err := tx.GetDifficulty(ctx, id)
		if err != nil {
			return err
		}
		if err := walksReferencing(tx.DB, "difficulty_id", id); err != nil {
			return err
		}
		if err := tx.DB.Delete(&models.Difficulty{}, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		out = d
		return nil
	})
	return out, err
}
