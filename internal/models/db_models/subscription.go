package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubStatusTrialing  SubscriptionStatus = "trialing"
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusGrace     SubscriptionStatus = "grace"
	SubStatusSuspended SubscriptionStatus = "suspended"
	SubStatusExpired   SubscriptionStatus = "expired"
	SubStatusCanceled  SubscriptionStatus = "canceled"
)

// Subscription is the one billing row per restaurant. The trial window, the
// paid period and the grace window are independent; the reconciler on the
// client side decides what to show when they disagree.
type Subscription struct {
	BaseModel
	RestaurantID uuid.UUID `gorm:"uniqueIndex"`
	PlanID       uuid.UUID `gorm:"index"`

	Status SubscriptionStatus `gorm:"type:subscription_status;index"`

	// Unix seconds; nil means the window was never opened.
	TrialStartAt       *int64
	TrialEndAt         *int64
	CurrentPeriodEndAt *int64
	GraceEndAt         *int64

	CancelAtPeriodEnd bool `gorm:"default:false"`

	// Status to restore on unsuspend; only set while suspended.
	StatusBeforeSuspend SubscriptionStatus

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Restaurant Restaurant `gorm:"foreignKey:RestaurantID"`
	Plan       Plan       `gorm:"foreignKey:PlanID"`
}
