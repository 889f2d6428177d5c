package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleReader = "Reader"
	RoleWriter = "Writer"
	RoleAdmin  = "Admin"
)

type Account struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Email        string        `gorm:"uniqueIndex;not null"`
	Username     string        `gorm:"not null"`
	PasswordHash string        `gorm:"not null"`
	Roles        []AccountRole `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Account) RoleNames() []string {
	out := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		out = append(out, r.Role)
	}
	return out
}

type AccountRole struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role      string    `gorm:"primaryKey;size:32"`
}

type RefreshToken struct {
	ID         uint      `gorm:"primaryKey"`
	TokenHash  string    `gorm:"uniqueIndex;not null"`
	JwtID      string    `gorm:"not null"`
	IsUsed     bool      `gorm:"not null;default:false"`
	IsRevoked  bool      `gorm:"not null;default:false"`
	AddedDate  time.Time `gorm:"not null"`
	ExpiryDate time.Time `gorm:"not null"`
	AccountID  uuid.UUID `gorm:"type:uuid;index;not null"`
}

func (t *RefreshToken) Active() bool {
	return !t.IsUsed && !t.IsRevoked
}

type Region struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code           string    `gorm:"size:3;not null"`
	Name           string    `gorm:"size:100;not null"`
	RegionImageUrl *string
}

func (r *Region) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Difficulty struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:100;not null"`
}

func (d *Difficulty) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type Walk struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"size:100;not null"`
	Description  string     `gorm:"size:1000;not null"`
	LengthInKm   float64    `gorm:"not null"`
	WalkImageUrl *string
	DifficultyID uuid.UUID  `gorm:"type:uuid;index;not null"`
	RegionID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	Difficulty   Difficulty `gorm:"foreignKey:DifficultyID"`
	Region       Region     `gorm:"foreignKey:RegionID"`
}

func (w *Walk) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type Image struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	FileName        string    `gorm:"not null"`
	FileDescription *string
	FileExtension   string `gorm:"not null"`
	FileSizeInBytes int64  `gorm:"not null"`
	FilePath        string `gorm:"not null"`
}

func (i *Image) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Account{},
		&AccountRole{},
		&RefreshToken{},
		&Region{},
		&Difficulty{},
		&Walk{},
		&Image{},
	}
}
