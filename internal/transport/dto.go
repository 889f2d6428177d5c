package transport

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

type LoginResponse struct {
	JWTToken     string `json:"JWTToken"`
	RefreshToken string `json:"RefreshToken"`
}

type RegisterRequest struct {
	Username string   `json:"Username"`
	Email    string   `json:"Email"`
	Password string   `json:"Password"`
	Roles    []string `json:"Roles"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenRequest is the body of Refresh-Token and Logout. JwtToken is accepted
// for compatibility with existing clients but is not consulted.
type TokenRequest struct {
	JwtToken     string `json:"JwtToken"`
	RefreshToken string `json:"RefreshToken"`
}

func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type RegionRequest struct {
	Code           string  `json:"Code"`
	Name           string  `json:"Name"`
	RegionImageUrl *string `json:"RegionImageUrl"`
}

func (r RegionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.RuneLength(3, 3).Error("Code has to be exactly 3 characters")),
		validation.Field(&r.Name, validation.Required, validation.RuneLength(0, 100).Error("Name has to be a maximum of 100 characters")),
		validation.Field(&r.RegionImageUrl, validation.NilOrNotEmpty, is.URL),
	)
}

type DifficultyRequest struct {
	Name string `json:"Name"`
}

func (r DifficultyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(0, 100).Error("Name must be at most 100 characters long")),
	)
}

type WalkRequest struct {
	Name         string    `json:"Name"`
	Description  string    `json:"Description"`
	LengthInKm   float64   `json:"LengthInKm"`
	WalkImageUrl *string   `json:"WalkImageUrl"`
	DifficultyId uuid.UUID `json:"DifficultyId"`
	RegionId     uuid.UUID `json:"RegionId"`
}

func (r WalkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(0, 100)),
		validation.Field(&r.Description, validation.Required, validation.RuneLength(0, 1000)),
		validation.Field(&r.LengthInKm, validation.Min(0.0), validation.Max(50.0)),
		validation.Field(&r.WalkImageUrl, validation.NilOrNotEmpty, is.URL),
		validation.Field(&r.DifficultyId, validation.NotIn(uuid.Nil).Error("is required")),
		validation.Field(&r.RegionId, validation.NotIn(uuid.Nil).Error("is required")),
	)
}

type WalkListQuery struct {
	FilterOn    string `query:"filterOn"`
	FilterQuery string `query:"filterQuery"`
	SortBy      string `query:"sortBy"`
	IsAscending bool   `query:"isAscending"`
	PageNumber  int    `query:"pageNumber"`
	PageSize    int    `query:"pageSize"`
}

const (
	DefaultWalkPageSize = 1000
	MaxWalkPageSize     = 1000
)

func (q *WalkListQuery) Normalize() {
	q.FilterOn = strings.TrimSpace(q.FilterOn)
	q.SortBy = strings.TrimSpace(q.SortBy)
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	if q.PageSize < 1 || q.PageSize > MaxWalkPageSize {
		q.PageSize = DefaultWalkPageSize
	}
}

type ImageUploadRequest struct {
	FileName        string
	FileDescription *string
	Extension       string
	Size            int64
}

var allowedImageExtensions = []any{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".ico", ".webp"}

const MaxImageBytes = 10 << 20

func (r ImageUploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileName, validation.Required, validation.By(plainFileName)),
		validation.Field(&r.Extension, validation.Required, validation.In(allowedImageExtensions...).Error("Unsupported file extension")),
		validation.Field(&r.Size, validation.Max(int64(MaxImageBytes)).Error("File size more than 10MB, please upload a smaller size file.")),
	)
}

func plainFileName(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return validation.NewError("validation_file_name", "must not contain path separators")
	}
	return nil
}
