package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

func (r *GormRepo) ListRegions(ctx context.Context) ([]models.Region, error) {
	var items []models.Region
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetRegion(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	var region models.Region
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&region).Error; err != nil {
		return nil, translate(err)
	}
	return &region, nil
}

func (r *GormRepo) CreateRegion(ctx context.Context, region *models.Region) error {
	return translate(r.DB.WithContext(ctx).Create(region).Error)
}

func (r *GormRepo) UpdateRegion(ctx context.Context, id uuid.UUID, in models.Region) (*models.Region, error) {
	var out *models.Region
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		var region models.Region
		if err := forUpdate(tx.DB).Where("id = ?", id).First(&region).Error; err != nil {
			return translate(err)
		}
		region.Code = in.Code
		region.Name = in.Name
		region.RegionImageUrl = in.RegionImageUrl
		if err := tx.DB.Save(&region).Error; err != nil {
			return err
		}
		out = &region
		return nil
	})
	return out, err
}

// DeleteRegion removes the region and returns the deleted row.
func (r *GormRepo) DeleteRegion(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	var out *models.Region
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		var region models.Region
		if err := tx.DB.Where("id = ?", id).First(&region).Error; err != nil {
			return translate(err)
		}
		if err := walksReferencing(tx.DB, "region_id", id); err != nil {
			return err
		}
		if err := tx.DB.Delete(&region).Error; err != nil {
			return translate(err)
		}
		out = &region
		return nil
	})
	return out, err
}
