package contract

import "strings"

type Role string

const (
	RoleRouter    Role = "router"
	RoleExtractor Role = "extractor"
	RoleComposer  Role = "composer"
	RoleCatalog   Role = "catalog"
)

const (
	TemperatureDeterministic float32 = 0.0
	TemperatureCompose       float32 = 0.3
)

// SendResult is what the notification capability reports back.
type SendResult struct {
	DeliveryID string `json:"delivery_id,omitempty"`
	Success    bool   `json:"success,omitempty"`
	Status     string `json:"status,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

var confirmedStatuses = map[string]struct{}{
	"sent":      {},
	"delivered": {},
	"success":   {},
}

// Confirmed reports whether the result carries an explicit success signal.
func (r *SendResult) Confirmed() bool {
	if r == nil {
		return false
	}
	if strings.TrimSpace(r.DeliveryID) != "" || r.Success {
		return true
	}
	_, ok := confirmedStatuses[strings.ToLower(strings.TrimSpace(r.Status))]
	return ok
}
