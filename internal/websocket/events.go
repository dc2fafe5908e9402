package websocket

const (
	TypeVerificationEvent = "verification_event"
	TypeAdminEvent        = "admin_event"
)

type VerificationEvent struct {
	LicenseKey string `json:"license_key"`
	GymName    string `json:"gym_name,omitempty"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
	IPAddress  string `json:"ip_address"`
	Timestamp  string `json:"timestamp"`
}

type AdminEvent struct {
	LicenseKey string `json:"license_key"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	Operator   string `json:"operator"`
	Timestamp  string `json:"timestamp"`
}

func (h *Hub) BroadcastVerification(event VerificationEvent) {
	h.BroadcastToAdmins(TypeVerificationEvent, event)
}

func (h *Hub) BroadcastAdminEvent(event AdminEvent) {
	h.BroadcastToAdmins(TypeAdminEvent, event)
}
