package license

import (
	"strings"

	"github.com/rex103240/IronLock-Server/internal/models"
)

// Claims are the identity details a client self-reports on verification.
type Claims struct {
	GymName   string
	Email     string
	Address   string
	Phone     string
	OpenTime  string
	CloseTime string
	Currency  string
}

// Capture holds the identity columns newly bound by one claim bundle.
type Capture map[models.IdentityField]string

// CaptureIdentity applies first-write-wins binding of claims onto record.
// A field is set only when it is currently blank and the claim is not.
// The returned Capture lists exactly the fields that changed.
func CaptureIdentity(record models.License, claims Claims) (models.License, Capture) {
	captured := Capture{}

	bind := func(field models.IdentityField, current *string, claim string) {
		if isBlank(*current) && !isBlank(claim) {
			*current = strings.TrimSpace(claim)
			captured[field] = *current
		}
	}

	bind(models.FieldGymName, &record.GymName, claims.GymName)
	bind(models.FieldClientEmail, &record.ClientEmail, claims.Email)
	bind(models.FieldAddress, &record.Address, claims.Address)
	bind(models.FieldPhone, &record.Phone, claims.Phone)

	if isBlank(record.AdditionalInfo) && (!isBlank(claims.OpenTime) || !isBlank(claims.Currency)) {
		record.AdditionalInfo = formatAdditionalInfo(claims)
		captured[models.FieldAdditionalInfo] = record.AdditionalInfo
	}

	return record, captured
}

// NeedsRegistration reports whether the record still has no gym bound.
func NeedsRegistration(record models.License) bool {
	return isBlank(record.GymName)
}

func formatAdditionalInfo(claims Claims) string {
	var parts []string

	if open := strings.TrimSpace(claims.OpenTime); open != "" {
		closing := strings.TrimSpace(claims.CloseTime)
		if closing == "" {
			closing = "?"
		}
		parts = append(parts, "Hours: "+open+"-"+closing)
	}
	if currency := strings.TrimSpace(claims.Currency); currency != "" {
		parts = append(parts, "Currency: "+currency)
	}

	return strings.Join(parts, " | ")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
