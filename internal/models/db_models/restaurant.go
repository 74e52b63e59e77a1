package db_models

import "github.com/google/uuid"

type Restaurant struct {
	BaseModel
	Name           string
	Slug           string `gorm:"uniqueIndex"` // public QR-menu handle
	OwnerAccountID uuid.UUID
	IsActive       bool `gorm:"default:true"`
}
