package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Closed set of lifecycle event types. The column stays a plain string because
// rows written by earlier backends carry free-form types; consumers must treat
// unknown values as legacy and match them loosely.
const (
	EventTrialStarted = "TRIAL_STARTED"
	EventTrialSet     = "TRIAL_SET"
	EventPaidSet      = "PAID_SET"
	EventDaysGranted  = "DAYS_GRANTED"
	EventSuspended    = "SUSPENDED"
	EventUnsuspended  = "UNSUSPENDED"
	EventGraceEntered = "GRACE_ENTERED"
	EventExpired      = "EXPIRED"
	EventReactivated  = "REACTIVATED"
)

// SubscriptionEvent is append-only; the latest SUSPENDED/UNSUSPENDED event
// decides the suspension state a client derives.
type SubscriptionEvent struct {
	BaseModel
	RestaurantID   uuid.UUID `gorm:"index"`
	SubscriptionID uuid.UUID `gorm:"index"`
	EventType      string    `gorm:"index"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
