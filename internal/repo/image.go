package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

func (r *GormRepo) CreateImage(ctx context.Context, img *models.Image) error {
	return translate(r.DB.WithContext(ctx).Create(img).Error)
}

func (r *GormRepo) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var img models.Image
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&img).Error; err != nil {
		return nil, translate(err)
	}
	return &img, nil
}
