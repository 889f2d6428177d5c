package httpserver

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

type ImageHTTP struct {
	Svc *service.ImageService
}

// Upload accepts multipart fields File, FileName and FileDescription.
func (h *ImageHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "image_upload")

	fh, err := c.FormFile("File")
	if err != nil {
		l.Warn("upload_error", "status", 400, "reason", "missing file", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}

	req := transport.ImageUploadRequest{
		FileName:  strings.TrimSpace(c.FormValue("FileName")),
		Extension: strings.ToLower(filepath.Ext(fh.Filename)),
		Size:      fh.Size,
	}
	if desc := c.FormValue("FileDescription"); desc != "" {
		req.FileDescription = &desc
	}
	if err := req.Validate(); err != nil {
		l.Warn("upload_error", "status", 400, "error", err)
		return badRequest(err)
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	base := &url.URL{Scheme: c.Scheme(), Host: c.Request().Host}
	img, err := h.Svc.Upload(ctx, req, f, base)
	if err != nil {
		return catalogError(c, "Image", err)
	}
	return c.JSON(http.StatusOK, transport.FromImage(*img))
}

func (h *ImageHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "Image")
	if err != nil {
		return err
	}
	img, err := h.Svc.GetImage(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Image", err)
	}
	return c.JSON(http.StatusOK, transport.FromImage(*img))
}
