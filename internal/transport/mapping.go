package transport

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/nz_walks/internal/models"
)

type RegionDTO struct {
	Id             uuid.UUID `json:"Id"`
	Code           string    `json:"Code"`
	Name           string    `json:"Name"`
	RegionImageUrl *string   `json:"RegionImageUrl,omitempty"`
}

type DifficultyDTO struct {
	Id   uuid.UUID `json:"Id"`
	Name string    `json:"Name"`
}

type WalkDTO struct {
	Id           uuid.UUID     `json:"Id"`
	Name         string        `json:"Name"`
	Description  string        `json:"Description"`
	LengthInKm   float64       `json:"LengthInKm"`
	WalkImageUrl *string       `json:"WalkImageUrl,omitempty"`
	DifficultyId uuid.UUID     `json:"DifficultyId"`
	RegionId     uuid.UUID     `json:"RegionId"`
	Difficulty   DifficultyDTO `json:"Difficulty"`
	Region       RegionDTO     `json:"Region"`
}

type ImageDTO struct {
	Id              uuid.UUID `json:"Id"`
	FileName        string    `json:"FileName"`
	FileDescription *string   `json:"FileDescription,omitempty"`
	FileExtension   string    `json:"FileExtension"`
	FileSizeInBytes int64     `json:"FileSizeInBytes"`
	FilePath        string    `json:"FilePath"`
}

func FromRegion(r models.Region) RegionDTO {
	return RegionDTO{Id: r.ID, Code: r.Code, Name: r.Name, RegionImageUrl: r.RegionImageUrl}
}

func FromRegions(rs []models.Region) []RegionDTO {
	out := make([]RegionDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromRegion(r))
	}
	return out
}

func FromDifficulty(d models.Difficulty) DifficultyDTO {
	return DifficultyDTO{Id: d.ID, Name: d.Name}
}

func FromDifficulties(ds []models.Difficulty) []DifficultyDTO {
	out := make([]DifficultyDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, FromDifficulty(d))
	}
	return out
}

func FromWalk(w models.Walk) WalkDTO {
	return WalkDTO{
		Id:           w.ID,
		Name:         w.Name,
		Description:  w.Description,
		LengthInKm:   w.LengthInKm,
		WalkImageUrl: w.WalkImageUrl,
		DifficultyId: w.DifficultyID,
		RegionId:     w.RegionID,
		Difficulty:   FromDifficulty(w.Difficulty),
		Region:       FromRegion(w.Region),
	}
}

func FromWalks(ws []models.Walk) []WalkDTO {
	out := make([]WalkDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, FromWalk(w))
	}
	return out
}

func FromImage(i models.Image) ImageDTO {
	return ImageDTO{
		Id:              i.ID,
		FileName:        i.FileName,
		FileDescription: i.FileDescription,
		FileExtension:   i.FileExtension,
		FileSizeInBytes: i.FileSizeInBytes,
		FilePath:        i.FilePath,
	}
}

func (r RegionRequest) ToModel() models.Region {
	return models.Region{Code: r.Code, Name: r.Name, RegionImageUrl: r.RegionImageUrl}
}

func (r WalkRequest) ToModel() models.Walk {
	return models.Walk{
		Name:         r.Name,
		Description:  r.Description,
		LengthInKm:   r.LengthInKm,
		WalkImageUrl: r.WalkImageUrl,
		DifficultyID: r.DifficultyId,
		RegionID:     r.RegionId,
	}
}
