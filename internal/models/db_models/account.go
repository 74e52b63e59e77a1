package db_models

import "github.com/google/uuid"

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

type Account struct {
	BaseModel
	DisplayName  string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string     `gorm:"index;default:'owner'"`
	RestaurantID *uuid.UUID `gorm:"index"` // nil for platform admins
}
