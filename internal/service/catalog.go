package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/es"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/mykafka"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/internal/util"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

// WalkIndexer keeps the walk search index in sync. *es.WalkIndex satisfies it.
type WalkIndexer interface {
	IndexWalk(ctx context.Context, w models.Walk) error
	DeleteWalk(ctx context.Context, id string) error
	SearchWalks(ctx context.Context, query string, from, size int) (int64, []es.WalkDocument, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Search WalkIndexer
}

func repoErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrInUse):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

func (s *CatalogService) catalogEvent(ctx context.Context, typ string, id uuid.UUID, name string) {
	publish(ctx, s.Events, mykafka.TopicCatalogEvents, id.String(), mykafka.CatalogEvent{
		Type: typ,
		ID:   id.String(),
		Name: name,
		At:   time.Now().UTC(),
	})
}

func (s *CatalogService) ListRegions(ctx context.Context) ([]models.Region, error) {
	return s.Repo.ListRegions(ctx)
}

func (s *CatalogService) GetRegion(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	r, err := s.Repo.GetRegion(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	return r, nil
}

func (s *CatalogService) CreateRegion(ctx context.Context, req transport.RegionRequest) (*models.Region, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	region := req.ToModel()
	if err := s.Repo.CreateRegion(ctx, &region); err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventRegionCreated, region.ID, region.Name)
	return &region, nil
}

func (s *CatalogService) UpdateRegion(ctx context.Context, id uuid.UUID, req transport.RegionRequest) (*models.Region, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	region, err := s.Repo.UpdateRegion(ctx, id, req.ToModel())
	if err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventRegionUpdated, region.ID, region.Name)
	return region, nil
}

func (s *CatalogService) DeleteRegion(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	region, err := s.Repo.DeleteRegion(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventRegionDeleted, region.ID, region.Name)
	return region, nil
}

func (s *CatalogService) ListDifficulties(ctx context.Context) ([]models.Difficulty, error) {
	return s.Repo.ListDifficulties(ctx)
}

func (s *CatalogService) GetDifficulty(ctx context.Context, id uuid.UUID) (*models.Difficulty, error) {
	d, err := s.Repo.GetDifficulty(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	return d, nil
}

func (s *CatalogService) CreateDifficulty(ctx context.Context, req transport.DifficultyRequest) (*models.Difficulty, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	d := models.Difficulty{Name: req.Name}
	if err := s.Repo.CreateDifficulty(ctx, &d); err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventDifficultyCreated, d.ID, d.Name)
	return &d, nil
}

func (s *CatalogService) UpdateDifficulty(ctx context.Context, id uuid.UUID, req transport.DifficultyRequest) (*models.Difficulty, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	d, err := s.Repo.UpdateDifficulty(ctx, id, req.Name)
	if err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventDifficultyUpdated, d.ID, d.Name)
	return d, nil
}

func (s *CatalogService) DeleteDifficulty(ctx context.Context, id uuid.UUID) (*models.Difficulty, error) {
	d, err := s.Repo.DeleteDifficulty(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	s.catalogEvent(ctx, mykafka.EventDifficultyDeleted, d.ID, d.Name)
	return d, nil
}

func (s *CatalogService) ListWalks(ctx context.Context, q transport.WalkListQuery) ([]models.Walk, error) {
	q.Normalize()
	offset, limit := util.Page(q.PageNumber, q.PageSize)
	return s.Repo.ListWalks(ctx, repo.WalkQuery{
		FilterOn:    q.FilterOn,
		FilterQuery: q.FilterQuery,
		SortBy:      q.SortBy,
		IsAscending: q.IsAscending,
		Offset:      offset,
		Limit:       limit,
	})
}

func (s *CatalogService) GetWalk(ctx context.Context, id uuid.UUID) (*models.Walk, error) {
	w, err := s.Repo.GetWalk(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	return w, nil
}

// checkWalkRefs rejects a walk whose region or difficulty does not exist.
func checkWalkRefs(ctx context.Context, r *repo.GormRepo, req transport.WalkRequest) error {
	if _, err := r.GetRegion(ctx, req.RegionId); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: region %s does not exist", ErrValidation, req.RegionId)
		}
		return err
	}
	if _, err := r.GetDifficulty(ctx, req.DifficultyId); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: difficulty %s does not exist", ErrValidation, req.DifficultyId)
		}
		return err
	}
	return nil
}

func (s *CatalogService) CreateWalk(ctx context.Context, req transport.WalkRequest) (*models.Walk, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var out *models.Walk
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := checkWalkRefs(ctx, tx, req); err != nil {
			return err
		}
		w := req.ToModel()
		if err := tx.CreateWalk(ctx, &w); err != nil {
			return err
		}
		got, err := tx.GetWalk(ctx, w.ID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.index(ctx, *out)
	s.catalogEvent(ctx, mykafka.EventWalkCreated, out.ID, out.Name)
	return out, nil
}

func (s *CatalogService) UpdateWalk(ctx context.Context, id uuid.UUID, req transport.WalkRequest) (*models.Walk, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var out *models.Walk
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetWalk(ctx, id); err != nil {
			return err
		}
		if err := checkWalkRefs(ctx, tx, req); err != nil {
			return err
		}
		if err := tx.UpdateWalk(ctx, id, req.ToModel()); err != nil {
			return err
		}
		got, err := tx.GetWalk(ctx, id)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.index(ctx, *out)
	s.catalogEvent(ctx, mykafka.EventWalkUpdated, out.ID, out.Name)
	return out, nil
}

func (s *CatalogService) DeleteWalk(ctx context.Context, id uuid.UUID) (*models.Walk, error) {
	w, err := s.Repo.DeleteWalk(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}

	if s.Search != nil {
		if err := s.Search.DeleteWalk(ctx, w.ID.String()); err != nil {
			logging.FromContext(ctx).Warn("search_unindex_failed", "walk_id", w.ID.String(), "error", err)
		}
	}
	s.catalogEvent(ctx, mykafka.EventWalkDeleted, w.ID, w.Name)
	return w, nil
}

func (s *CatalogService) index(ctx context.Context, w models.Walk) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexWalk(ctx, w); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "walk_id", w.ID.String(), "error", err)
	}
}

type WalkSearchResult struct {
	Total int64
	Items []es.WalkDocument
}

func (s *CatalogService) SearchWalks(ctx context.Context, query string, pageNumber, pageSize int) (*WalkSearchResult, error) {
	if s.Search == nil {
		return nil, ErrSearchUnavailable
	}
	offset, limit := util.Page(pageNumber, pageSize)
	total, docs, err := s.Search.SearchWalks(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("search walks: %w", err)
	}
	return &WalkSearchResult{Total: total, Items: docs}, nil
}
