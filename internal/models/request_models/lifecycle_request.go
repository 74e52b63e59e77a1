package request_models

// Day counts arrive as plain JSON numbers; the service layer rejects anything
// that is not a positive whole number before touching the subscription row.
type GrantDaysRequest struct {
	Days int `json:"days" binding:"required"`
}

type SetTrialDaysRequest struct {
	Days int `json:"days" binding:"required"`
}

type SetPaidDaysRequest struct {
	Days int `json:"days" binding:"required"`
}

type SuspendRequest struct {
	Reason string `json:"reason"`
}
