package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

// pathID parses the :id route parameter. A malformed id cannot name an
// existing row, so it is reported the same way as a missing one.
func pathID(c echo.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return id, nil
}

// catalogError maps service errors for resource what onto HTTP errors.
func catalogError(c echo.Context, what string, err error) error {
	l := logging.FromContext(c.Request().Context())
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn("validation_error", "status", 400, "error", err)
		return badRequest(err)
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	case errors.Is(err, service.ErrConflict):
		l.Warn("conflict", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, what+" is still in use")
	default:
		return err
	}
}

func bindBody(c echo.Context, dst any, handler string) error {
	if err := c.Bind(dst); err != nil {
		logging.FromContext(c.Request().Context()).Warn(handler+"_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

type RegionHTTP struct {
	Svc *service.CatalogService
}

func (h *RegionHTTP) List(c echo.Context) error {
	items, err := h.Svc.ListRegions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.FromRegions(items))
}

func (h *RegionHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "Region")
	if err != nil {
		return err
	}
	r, err := h.Svc.GetRegion(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Region", err)
	}
	return c.JSON(http.StatusOK, transport.FromRegion(*r))
}

func (h *RegionHTTP) Create(c echo.Context) error {
	var req transport.RegionRequest
	if err := bindBody(c, &req, "region_create"); err != nil {
		return err
	}
	r, err := h.Svc.CreateRegion(c.Request().Context(), req)
	if err != nil {
		return catalogError(c, "Region", err)
	}
	return c.JSON(http.StatusCreated, transport.FromRegion(*r))
}

func (h *RegionHTTP) Update(c echo.Context) error {
	id, err := pathID(c, "Region")
	if err != nil {
		return err
	}
	var req transport.RegionRequest
	if err := bindBody(c, &req, "region_update"); err != nil {
		return err
	}
	r, err := h.Svc.UpdateRegion(c.Request().Context(), id, req)
	if err != nil {
		return catalogError(c, "Region", err)
	}
	return c.JSON(http.StatusOK, transport.FromRegion(*r))
}

func (h *RegionHTTP) Delete(c echo.Context) error {
	id, err := pathID(c, "Region")
	if err != nil {
		return err
	}
	r, err := h.Svc.DeleteRegion(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Region", err)
	}
	return c.JSON(http.StatusOK, transport.FromRegion(*r))
}

type DifficultyHTTP struct {
	Svc *service.CatalogService
}

func (h *DifficultyHTTP) List(c echo.Context) error {
	items, err := h.Svc.ListDifficulties(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.FromDifficulties(items))
}

func (h *DifficultyHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "Difficulty")
	if err != nil {
		return err
	}
	d, err := h.Svc.GetDifficulty(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Difficulty", err)
	}
	return c.JSON(http.StatusOK, transport.FromDifficulty(*d))
}

func (h *DifficultyHTTP) Create(c echo.Context) error {
	var req transport.DifficultyRequest
	if err := bindBody(c, &req, "difficulty_create"); err != nil {
		return err
	}
	d, err := h.Svc.CreateDifficulty(c.Request().Context(), req)
	if err != nil {
		return catalogError(c, "Difficulty", err)
	}
	return c.JSON(http.StatusCreated, transport.FromDifficulty(*d))
}

func (h *DifficultyHTTP) Update(c echo.Context) error {
	id, err := pathID(c, "Difficulty")
	if err != nil {
		return err
	}
	var req transport.DifficultyRequest
	if err := bindBody(c, &req, "difficulty_update"); err != nil {
		return err
	}
	d, err := h.Svc.UpdateDifficulty(c.Request().Context(), id, req)
	if err != nil {
		return catalogError(c, "Difficulty", err)
	}
	return c.JSON(http.StatusOK, transport.FromDifficulty(*d))
}

func (h *DifficultyHTTP) Delete(c echo.Context) error {
	id, err := pathID(c, "Difficulty")
	if err != nil {
		return err
	}
	d, err := h.Svc.DeleteDifficulty(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Difficulty", err)
	}
	return c.JSON(http.StatusOK, transport.FromDifficulty(*d))
}

type WalkHTTP struct {
	Svc *service.CatalogService
}

func (h *WalkHTTP) List(c echo.Context) error {
	var q transport.WalkListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		logging.FromContext(c.Request().Context()).Warn("walk_list_error", "status", 400, "reason", "invalid query", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	items, err := h.Svc.ListWalks(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.FromWalks(items))
}

func (h *WalkHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "Walk")
	if err != nil {
		return err
	}
	w, err := h.Svc.GetWalk(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Walk", err)
	}
	return c.JSON(http.StatusOK, transport.FromWalk(*w))
}

func (h *WalkHTTP) Create(c echo.Context) error {
	var req transport.WalkRequest
	if err := bindBody(c, &req, "walk_create"); err != nil {
		return err
	}
	w, err := h.Svc.CreateWalk(c.Request().Context(), req)
	if err != nil {
		return catalogError(c, "Walk", err)
	}
	return c.JSON(http.StatusCreated, transport.FromWalk(*w))
}

func (h *WalkHTTP) Update(c echo.Context) error {
	id, err := pathID(c, "Walk")
	if err != nil {
		return err
	}
	var req transport.WalkRequest
	if err := bindBody(c, &req, "walk_update"); err != nil {
		return err
	}
	w, err := h.Svc.UpdateWalk(c.Request().Context(), id, req)
	if err != nil {
		return catalogError(c, "Walk", err)
	}
	return c.JSON(http.StatusOK, transport.FromWalk(*w))
}

func (h *WalkHTTP) Delete(c echo.Context) error {
	id, err := pathID(c, "Walk")
	if err != nil {
		return err
	}
	w, err := h.Svc.DeleteWalk(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, "Walk", err)
	}
	return c.JSON(http.StatusOK, transport.FromWalk(*w))
}

type walkSearchQuery struct {
	Q          string `query:"q"`
	PageNumber int    `query:"pageNumber"`
	PageSize   int    `query:"pageSize"`
}

func (h *WalkHTTP) Search(c echo.Context) error {
	var q walkSearchQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil || q.Q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}

	res, err := h.Svc.SearchWalks(c.Request().Context(), q.Q, q.PageNumber, q.PageSize)
	if err != nil {
		if errors.Is(err, service.ErrSearchUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "search is unavailable")
		}
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"Total": res.Total, "Items": res.Items})
}
