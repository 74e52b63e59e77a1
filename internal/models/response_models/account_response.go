package response_models

type LoginResponse struct {
	Token        string `json:"token"`
	AccountID    string `json:"account_id"`
	RestaurantID string `json:"restaurant_id,omitempty"`
	Role         string `json:"role"`
}

type NotificationPreferenceResponse struct {
	InAppEnabled bool `json:"in_app_enabled"`
}
