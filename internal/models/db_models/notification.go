package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

type Notification struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`
	Title     string
	Body      string
	Data      datatypes.JSON     `gorm:"type:jsonb;default:'{}'"`
	Status    NotificationStatus `gorm:"index;default:'unread'"`
}

// NotificationPreference is read once per authenticated session by clients;
// a missing row means in-app alerts are enabled.
type NotificationPreference struct {
	BaseModel
	AccountID    uuid.UUID `gorm:"uniqueIndex"`
	InAppEnabled bool      `gorm:"default:true"`
}
