package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rex103240/IronLock-Server/internal/license"
)

type LicenseVerifier interface {
	Verify(ctx context.Context, req license.Request) (*license.Outcome, error)
}

type VerifyRequest struct {
	LicenseKey string `json:"license_key"`
	HardwareID string `json:"hardware_id"`
	GymName    string `json:"gym_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	OpenTime   string `json:"open_time"`
	CloseTime  string `json:"close_time"`
	Currency   string `json:"currency"`
}

type VerifyResponse struct {
	Valid             bool   `json:"valid"`
	Code              string `json:"code"`
	Message           string `json:"message"`
	NeedsRegistration bool   `json:"needs_registration,omitempty"`
	GymName           string `json:"gym_name,omitempty"`
	ExpiresInDays     *int   `json:"expires_in_days,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	Signature         string `json:"signature,omitempty"`
}

var outcomeStatus = map[license.Kind]int{
	license.KindAccepted:          http.StatusOK,
	license.KindNeedsRegistration: http.StatusOK,
	license.KindMissingInput:      http.StatusBadRequest,
	license.KindUnknownKey:        http.StatusUnauthorized,
	license.KindSuspended:         http.StatusForbidden,
	license.KindExpired:           http.StatusForbidden,
	license.KindHardwareMismatch:  http.StatusForbidden,
}

type VerifyHandler struct {
	verifier LicenseVerifier
}

func NewVerifyHandler(verifier LicenseVerifier) *VerifyHandler {
	return &VerifyHandler{verifier: verifier}
}

// Verify is the client-facing license check. A client-supplied audit
// message is not accepted here; only admin diagnostics relabel entries.
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, renderOutcome(&license.Outcome{
			Kind:    license.KindMissingInput,
			Message: license.KindMissingInput.Message(),
		}))
		return
	}

	outcome, err := h.verifier.Verify(c.Request.Context(), license.Request{
		Key:        req.LicenseKey,
		HardwareID: req.HardwareID,
		Claims: license.Claims{
			GymName:   req.GymName,
			Email:     req.Email,
			Address:   req.Address,
			Phone:     req.Phone,
			OpenTime:  req.OpenTime,
			CloseTime: req.CloseTime,
			Currency:  req.Currency,
		},
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, VerifyResponse{
			Valid:   false,
			Code:    "server_error",
			Message: "Server Error",
		})
		return
	}

	status, ok := outcomeStatus[outcome.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, renderOutcome(outcome))
}

func renderOutcome(outcome *license.Outcome) VerifyResponse {
	resp := VerifyResponse{
		Valid:             outcome.Kind.Valid(),
		Code:              string(outcome.Kind),
		Message:           outcome.Message,
		NeedsRegistration: outcome.Kind == license.KindNeedsRegistration,
	}
	if outcome.Kind == license.KindAccepted {
		days := outcome.DaysRemaining
		resp.GymName = outcome.GymName
		resp.ExpiresInDays = &days
		resp.ExpiryDate = outcome.ExpiryDate
		resp.Signature = outcome.Signature
	}
	return resp
}
