package license

import "github.com/rex103240/IronLock-Server/internal/models"

// Kind is the machine-checkable discriminant of a verification outcome.
type Kind string

const (
	KindAccepted          Kind = "accepted"
	KindNeedsRegistration Kind = "needs_registration"
	KindMissingInput      Kind = "missing_input"
	KindUnknownKey        Kind = "unknown_key"
	KindSuspended         Kind = "suspended"
	KindExpired           Kind = "expired"
	KindHardwareMismatch  Kind = "hardware_mismatch"
)

var kindMessages = map[Kind]string{
	KindAccepted:          "License Valid",
	KindNeedsRegistration: "Registration Required",
	KindMissingInput:      "Missing Data",
	KindUnknownKey:        "Invalid License Key",
	KindSuspended:         "License Suspended",
	KindExpired:           "License Expired",
	KindHardwareMismatch:  "License Locked To Another Device",
}

func (k Kind) Message() string {
	return kindMessages[k]
}

// Valid reports whether the client may keep running.
func (k Kind) Valid() bool {
	return k == KindAccepted || k == KindNeedsRegistration
}

type Outcome struct {
	Kind    Kind
	Message string

	// Set only for KindAccepted.
	GymName       string
	DaysRemaining int
	ExpiryDate    string
	Signature     string

	// Audit is the access-log entry to append, nil when nothing is recorded.
	Audit *models.AccessLog
}

func newOutcome(kind Kind) *Outcome {
	return &Outcome{Kind: kind, Message: kind.Message()}
}
