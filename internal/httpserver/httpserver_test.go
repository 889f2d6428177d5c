package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/metrics"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/internal/storage"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	pkgdb "github.com/Skotchmaster/nz_walks/pkg/db"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

const testPassword = "Passw0rd!"

type env struct {
	e         *echo.Echo
	authSvc   *service.AuthService
	imagesDir string
}

func newEnv(t *testing.T, cookies bool) *env {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), pkgdb.Options{Driver: "sqlite", DSN: ":memory:", Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := repo.New(db)
	require.NoError(t, r.AutoMigrate(context.Background()))

	issuer := tokens.NewIssuer([]byte("handler-test-key"), "nzwalks", "nzwalks", config.AccessTokenTTL)
	authSvc := &service.AuthService{Repo: r, Issuer: issuer, Metrics: metrics.New()}
	catalog := &service.CatalogService{Repo: r}

	imagesDir := t.TempDir()
	store, err := storage.NewLocalStore(imagesDir)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	Register(e, &Deps{
		Auth:         &AuthHTTP{Svc: authSvc, Cookies: cookies},
		Regions:      &RegionHTTP{Svc: catalog},
		Difficulties: &DifficultyHTTP{Svc: catalog},
		Walks:        &WalkHTTP{Svc: catalog},
		Images:       &ImageHTTP{Svc: &service.ImageService{Repo: r, Store: store}},
		Verifier:     issuer,
		Metrics:      authSvc.Metrics,
		Ready:        r.Ping,
		ImagesDir:    imagesDir,
	})
	return &env{e: e, authSvc: authSvc, imagesDir: imagesDir}
}

func (en *env) doJSONRequest(method, path string, body any, bearer string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	en.e.ServeHTTP(rec, req)
	return rec
}

func (en *env) login(t *testing.T, email string) transport.LoginResponse {
	t.Helper()
	rec := en.doJSONRequest(http.MethodPost, "/api/Auth/Login", transport.LoginRequest{Email: email, Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res transport.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (en *env) registerAndLogin(t *testing.T, email string, roles ...string) string {
	t.Helper()
	rec := en.doJSONRequest(http.MethodPost, "/api/Auth/Register", transport.RegisterRequest{
		Username: "walker", Email: email, Password: testPassword, Roles: roles,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return en.login(t, email).JWTToken
}

func (en *env) adminToken(t *testing.T) string {
	t.Helper()
	_, err := en.authSvc.ProvisionAdmin(context.Background(), "admin", "admin@example.com", testPassword)
	require.NoError(t, err)
	return en.login(t, "admin@example.com").JWTToken
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestAuthFlow(t *testing.T) {
	en := newEnv(t, false)
	en.registerAndLogin(t, "reader@example.com", models.RoleReader)
	login := en.login(t, "reader@example.com")
	assert.NotEmpty(t, login.JWTToken)
	assert.GreaterOrEqual(t, len(login.RefreshToken), 36)

	rec := en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{JwtToken: login.JWTToken, RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated transport.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{RefreshToken: login.RefreshToken}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidRefreshToken, message(t, rec))

	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Logout", transport.TokenRequest{RefreshToken: rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for range 2 {
		rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Logout", transport.TokenRequest{RefreshToken: rotated.RefreshToken}, rotated.JWTToken)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{RefreshToken: rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_ForeignRefreshToken(t *testing.T) {
	en := newEnv(t, false)
	reader := en.registerAndLogin(t, "reader@example.com", models.RoleReader)
	en.registerAndLogin(t, "other@example.com", models.RoleReader)
	other := en.login(t, "other@example.com")

	rec := en.doJSONRequest(http.MethodPost, "/api/Auth/Logout", transport.TokenRequest{RefreshToken: other.RefreshToken}, reader)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{RefreshToken: other.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthErrors(t *testing.T) {
	en := newEnv(t, false)
	en.registerAndLogin(t, "reader@example.com", models.RoleReader)

	tests := []struct {
		name string
		path string
		body any
		msg  string
	}{
		{"wrong password", "/api/Auth/Login", transport.LoginRequest{Email: "reader@example.com", Password: "nope-nope"}, msgInvalidCredentials},
		{"unknown email", "/api/Auth/Login", transport.LoginRequest{Email: "ghost@example.com", Password: testPassword}, msgInvalidCredentials},
		{"admin self-registration", "/api/Auth/Register", transport.RegisterRequest{Username: "x", Email: "x@example.com", Password: testPassword, Roles: []string{"Admin"}}, msgNotAdmin},
		{"duplicate email", "/api/Auth/Register", transport.RegisterRequest{Username: "x", Email: "reader@example.com", Password: testPassword, Roles: []string{"Reader"}}, msgNotCreated},
		{"malformed email", "/api/Auth/Register", transport.RegisterRequest{Username: "x", Email: "not-an-email", Password: testPassword, Roles: []string{"Reader"}}, msgNotCreated},
		{"missing username", "/api/Auth/Register", transport.RegisterRequest{Email: "y@example.com", Password: testPassword, Roles: []string{"Reader"}}, msgNotCreated},
		{"missing refresh token", "/api/Auth/Refresh-Token", transport.TokenRequest{JwtToken: "x"}, msgInvalidRefreshToken},
		{"unknown refresh token", "/api/Auth/Refresh-Token", transport.TokenRequest{RefreshToken: "unknown"}, msgInvalidRefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := en.doJSONRequest(http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, message(t, rec))
		})
	}
}

func TestAuthCookies(t *testing.T) {
	en := newEnv(t, true)
	en.registerAndLogin(t, "reader@example.com", models.RoleReader)

	rec := en.doJSONRequest(http.MethodPost, "/api/Auth/Login", transport.LoginRequest{Email: "reader@example.com", Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)

	// Any safe API request hands out the csrf token cookie.
	rec = en.doJSONRequest(http.MethodGet, "/api/Walks", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var xsrf *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "XSRF-TOKEN" {
			xsrf = c
		}
	}
	require.NotNil(t, xsrf)
	assert.False(t, xsrf.HttpOnly)

	// The cookie alone is not enough; the csrf token has to be echoed back.
	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{}, "", refresh, xsrf)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/Auth/Refresh-Token", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-CSRF-Token", xsrf.Value)
	req.AddCookie(refresh)
	req.AddCookie(xsrf)
	rec = httptest.NewRecorder()
	en.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Body-token clients never send the cookie and are not affected.
	res := en.login(t, "reader@example.com")
	rec = en.doJSONRequest(http.MethodPost, "/api/Auth/Refresh-Token", transport.TokenRequest{RefreshToken: res.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleEnforcement(t *testing.T) {
	en := newEnv(t, false)
	reader := en.registerAndLogin(t, "reader@example.com", models.RoleReader)
	writer := en.registerAndLogin(t, "writer@example.com", models.RoleWriter)
	admin := en.adminToken(t)

	region := transport.RegionRequest{Code: "AKL", Name: "Auckland"}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		token  string
		want   int
	}{
		{"anonymous regions", http.MethodGet, "/api/Regions", nil, "", http.StatusUnauthorized},
		{"reader lists regions", http.MethodGet, "/api/Regions", nil, reader, http.StatusOK},
		{"writer cannot list regions", http.MethodGet, "/api/Regions", nil, writer, http.StatusForbidden},
		{"reader cannot create region", http.MethodPost, "/api/Regions", region, reader, http.StatusForbidden},
		{"writer creates region", http.MethodPost, "/api/Regions", region, writer, http.StatusCreated},
		{"admin creates region", http.MethodPost, "/api/Regions", region, admin, http.StatusCreated},
		{"anonymous walks", http.MethodGet, "/api/Walks", nil, "", http.StatusOK},
		{"reader lists difficulties v1", http.MethodGet, "/api/v1/Difficulties", nil, reader, http.StatusOK},
		{"invalid region", http.MethodPost, "/api/Regions", transport.RegionRequest{Code: "TOOLONG", Name: "x"}, writer, http.StatusBadRequest},
		{"unknown region id", http.MethodGet, "/api/Regions/00000000-0000-0000-0000-000000000001", nil, reader, http.StatusNotFound},
		{"malformed region id", http.MethodGet, "/api/Regions/nope", nil, reader, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := en.doJSONRequest(tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWalkEndpoints(t *testing.T) {
	en := newEnv(t, false)
	writer := en.registerAndLogin(t, "writer@example.com", models.RoleWriter)
	admin := en.adminToken(t)

	rec := en.doJSONRequest(http.MethodPost, "/api/Regions", transport.RegionRequest{Code: "NTL", Name: "Northland"}, writer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var region transport.RegionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &region))

	rec = en.doJSONRequest(http.MethodPost, "/api/Difficulties", transport.DifficultyRequest{Name: "Easy"}, writer)
	require.Equal(t, http.StatusCreated, rec.Code)
	var diff transport.DifficultyDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))

	for _, name := range []string{"Coast Track", "Bush Loop"} {
		rec = en.doJSONRequest(http.MethodPost, "/api/Walks", transport.WalkRequest{
			Name: name, Description: "Lovely", LengthInKm: 5, RegionId: region.Id, DifficultyId: diff.Id,
		}, writer)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = en.doJSONRequest(http.MethodGet, "/api/Walks?filterOn=Name&filterQuery=loop", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var walks []transport.WalkDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &walks))
	require.Len(t, walks, 1)
	assert.Equal(t, "Bush Loop", walks[0].Name)
	assert.Equal(t, "Northland", walks[0].Region.Name)

	rec = en.doJSONRequest(http.MethodGet, "/api/Walks?sortBy=Name&isAscending=true&pageNumber=2&pageSize=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &walks))
	require.Len(t, walks, 1)
	assert.Equal(t, "Coast Track", walks[0].Name)

	rec = en.doJSONRequest(http.MethodDelete, "/api/Walks/"+walks[0].Id.String(), nil, writer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = en.doJSONRequest(http.MethodDelete, "/api/Regions/"+region.Id.String(), nil, writer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = en.doJSONRequest(http.MethodDelete, "/api/Walks/"+walks[0].Id.String(), nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = en.doJSONRequest(http.MethodGet, "/api/Walks/search?q=loop", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("File", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImageUpload(t *testing.T) {
	en := newEnv(t, false)
	writer := en.registerAndLogin(t, "writer@example.com", models.RoleWriter)

	upload := func(fileName string) *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, fileName, []byte("image-bytes"), map[string]string{"FileName": "kauri", "FileDescription": "Tree"})
		req := httptest.NewRequest(http.MethodPost, "/api/Image/Upload", body)
		req.Header.Set(echo.HeaderContentType, ct)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+writer)
		rec := httptest.NewRecorder()
		en.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("photo.PNG")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var img transport.ImageDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, "http://example.com/Images/kauri.png", img.FilePath)

	_, err := os.Stat(filepath.Join(en.imagesDir, "kauri.png"))
	require.NoError(t, err)

	rec = en.doJSONRequest(http.MethodGet, "/Images/kauri.png", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image-bytes", rec.Body.String())

	rec = en.doJSONRequest(http.MethodGet, "/api/Image/"+img.Id.String(), nil, writer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var meta transport.ImageDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, img.FilePath, meta.FilePath)
	assert.Equal(t, "kauri", meta.FileName)

	rec = en.doJSONRequest(http.MethodGet, "/api/Image/"+img.Id.String(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = en.doJSONRequest(http.MethodGet, "/api/Image/00000000-0000-0000-0000-000000000001", nil, writer)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = upload("notes.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorHandler_Internal(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.GET("/boom", func(c echo.Context) error { return assert.AnError })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body internalError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Id)
	assert.Equal(t, internalErrorMessage, body.ErrorMessage)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestHealth(t *testing.T) {
	en := newEnv(t, false)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := en.doJSONRequest(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
