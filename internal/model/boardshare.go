package model

import (
	"time"

	"github.com/google/uuid"
)

// BoardShare grants a user access to a board they do not own.
type BoardShare struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"not null;check:role IN ('viewer', 'editor')"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Board Board `gorm:"foreignKey:BoardID"`
	User  User  `gorm:"foreignKey:UserID"`
}

// Board roles.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
)
