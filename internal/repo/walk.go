package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

type WalkQuery struct {
	FilterOn    string
	FilterQuery string
	SortBy      string
	IsAscending bool
	Offset      int
	Limit       int
}

var walkFilterColumns = map[string]string{
	"name":        "name",
	"description": "description",
}

func walkOrder(sortBy string, asc bool) (clause.OrderByColumn, bool) {
	col := clause.OrderByColumn{Desc: !asc}
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "name":
		col.Column = clause.Column{Table: clause.CurrentTable, Name: "name"}
	case "lengthinkm":
		col.Column = clause.Column{Table: clause.CurrentTable, Name: "length_in_km"}
	case "region":
		col.Column = clause.Column{Table: "Region", Name: "name"}
	case "difficulty":
		col.Column = clause.Column{Table: "Difficulty", Name: "name"}
	default:
		return col, false
	}
	return col, true
}

func (r *GormRepo) walks(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.Walk{}).Joins("Region").Joins("Difficulty")
}

// ListWalks filters by a substring of name or description, sorts by a walk
// column or by the joined region/difficulty name, then pages. Unknown filter
// and sort keys are ignored.
func (r *GormRepo) ListWalks(ctx context.Context, q WalkQuery) ([]models.Walk, error) {
	db := r.walks(ctx)

	if col, ok := walkFilterColumns[strings.ToLower(strings.TrimSpace(q.FilterOn))]; ok && q.FilterQuery != "" {
		db = db.Where(
			clause.Expr{
				SQL:  `LOWER(?) LIKE ? ESCAPE '\'`,
				Vars: []any{clause.Column{Table: clause.CurrentTable, Name: col}, "%" + escapeLike(strings.ToLower(q.FilterQuery)) + "%"},
			},
		)
	}

	if order, ok := walkOrder(q.SortBy, q.IsAscending); ok {
		db = db.Order(order)
	}
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}})

	if q.Limit > 0 {
		db = db.Offset(q.Offset).Limit(q.Limit)
	}

	var items []models.Walk
	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func (r *GormRepo) GetWalk(ctx context.Context, id uuid.UUID) (*models.Walk, error) {
	var w models.Walk
	if err := r.walks(ctx).Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Value: id}).First(&w).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *GormRepo) CreateWalk(ctx context.Context, w *models.Walk) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(w).Error)
}

func (r *GormRepo) UpdateWalk(ctx context.Context, id uuid.UUID, in models.Walk) error {
	res := r.DB.WithContext(ctx).Model(&models.Walk{}).Where("id = ?", id).Updates(map[string]any{
		"name":           in.Name,
		"description":    in.Description,
		"length_in_km":   in.LengthInKm,
		"walk_image_url": in.WalkImageUrl,
		"difficulty_id":  in.DifficultyID,
		"region_id":      in.RegionID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) DeleteWalk(ctx context.Context, id uuid.UUID) (*models.Walk, error) {
	var out *models.Walk
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		w, err := tx.GetWalk(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DB.Delete(&models.Walk{}, "id = ?", id).Error; err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}
