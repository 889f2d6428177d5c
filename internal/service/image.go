package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/mykafka"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	"github.com/Skotchmaster/nz_walks/internal/storage"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

// ImagesPath is the URL prefix uploaded files are served under.
const ImagesPath = "/Images"

type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, maxBytes int64) (int64, error)
	Remove(name string) error
}

type ImageService struct {
	Repo   *repo.GormRepo
	Store  FileStore
	Events EventPublisher
}

// Upload stores the file as <FileName><Extension> and records its metadata.
// baseURL is the scheme and host the file will be publicly reachable at.
func (s *ImageService) Upload(ctx context.Context, req transport.ImageUploadRequest, body io.Reader, baseURL *url.URL) (*models.Image, error) {
	l := logging.FromContext(ctx).With("svc", "image.upload")

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	name := req.FileName + req.Extension
	n, err := s.Store.Save(ctx, name, body, transport.MaxImageBytes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return nil, fmt.Errorf("%w: file size more than 10MB", ErrValidation)
		case errors.Is(err, storage.ErrInvalidName):
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("save image: %w", err)
	}

	public := *baseURL
	public.Path = path.Join(ImagesPath, name)
	public.RawQuery = ""

	img := &models.Image{
		FileName:        req.FileName,
		FileDescription: req.FileDescription,
		FileExtension:   req.Extension,
		FileSizeInBytes: n,
		FilePath:        public.String(),
	}
	if err := s.Repo.CreateImage(ctx, img); err != nil {
		if rmErr := s.Store.Remove(name); rmErr != nil {
			l.Warn("image_cleanup_failed", "file", name, "error", rmErr)
		}
		return nil, fmt.Errorf("create image: %w", err)
	}

	publish(ctx, s.Events, mykafka.TopicCatalogEvents, img.ID.String(), mykafka.CatalogEvent{
		Type: mykafka.EventImageUploaded,
		ID:   img.ID.String(),
		Name: name,
		At:   time.Now().UTC(),
	})
	l.Info("image_uploaded", "image_id", img.ID.String(), "bytes", n)
	return img, nil
}

func (s *ImageService) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	img, err := s.Repo.GetImage(ctx, id)
	if err != nil {
		return nil, repoErr(err)
	}
	return img, nil
}
