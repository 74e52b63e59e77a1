package db_models

import (
	"gorm.io/datatypes"
)

type Plan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g., "free", "pro_monthly"
	Name        string
	Description *string
	PriceMinor  int64  // 999 = $9.99
	Currency    string `gorm:"size:3"` // "USD", "VND"
	TrialDays   int32  `gorm:"default:14"`
	GraceDays   int32  `gorm:"default:3"`
	IsActive    bool   `gorm:"default:true"`
	// Feature flags, limits, etc.
	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
