package mykafka

import "time"

const (
	EventUserRegistered      = "user_registered"
	EventUserLoggedIn        = "user_logged_in"
	EventUserLoggedOut       = "user_logged_out"
	EventRefreshTokenRotated = "refresh_token_rotated"

	EventRegionCreated     = "region_created"
	EventRegionUpdated     = "region_updated"
	EventRegionDeleted     = "region_deleted"
	EventDifficultyCreated = "difficulty_created"
	EventDifficultyUpdated = "difficulty_updated"
	EventDifficultyDeleted = "difficulty_deleted"
	EventWalkCreated       = "walk_created"
	EventWalkUpdated       = "walk_updated"
	EventWalkDeleted       = "walk_deleted"
	EventImageUploaded     = "image_uploaded"
)

type UserEvent struct {
	Type      string    `json:"type"`
	AccountID string    `json:"accountID"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	At        time.Time `json:"at"`
}

type CatalogEvent struct {
	Type string    `json:"type"`
	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
	At   time.Time `json:"at"`
}
