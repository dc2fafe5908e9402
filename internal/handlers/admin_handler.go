package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/keylock"
	"github.com/rex103240/IronLock-Server/internal/middleware"
	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/service"
	"github.com/rex103240/IronLock-Server/internal/store"
)

type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) GetLicenses(c *gin.Context) {
	licenses, err := h.admin.List(c.Request.Context(), c.Query("search"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, licenses)
}

func (h *AdminHandler) GetLicense(c *gin.Context) {
	lic, err := h.admin.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lic)
}

func (h *AdminHandler) IssueLicenses(c *gin.Context) {
	var input struct {
		Count   int    `json:"count" binding:"required"`
		Months  int    `json:"months" binding:"required"`
		Email   string `json:"client_email"`
		GymName string `json:"gym_name"`
		Prefix  string `json:"prefix"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issued, err := h.admin.Issue(c.Request.Context(), service.IssueRequest{
		Count:   input.Count,
		Months:  input.Months,
		Email:   input.Email,
		GymName: input.GymName,
		Prefix:  input.Prefix,
	}, operatorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issued)
}

func (h *AdminHandler) CreateKey(c *gin.Context) {
	var input struct {
		Key        string `json:"key" binding:"required"`
		ValidUntil string `json:"valid_until" binding:"required"`
		Email      string `json:"client_email"`
		GymName    string `json:"gym_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validUntil, err := models.ParseDate(input.ValidUntil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid_until must be YYYY-MM-DD"})
		return
	}

	lic, err := h.admin.Create(c.Request.Context(), service.CreateRequest{
		Key:        input.Key,
		ValidUntil: validUntil,
		Email:      input.Email,
		GymName:    input.GymName,
	}, operatorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Key Created Successfully", "license": lic})
}

func (h *AdminHandler) ActivateLicense(c *gin.Context) {
	if err := h.admin.Activate(c.Request.Context(), c.Param("key"), operatorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "License activated"})
}

func (h *AdminHandler) SuspendLicense(c *gin.Context) {
	if err := h.admin.Suspend(c.Request.Context(), c.Param("key"), operatorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "License suspended"})
}

func (h *AdminHandler) ExtendLicense(c *gin.Context) {
	var input struct {
		Days int `json:"days"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	lic, err := h.admin.Extend(c.Request.Context(), c.Param("key"), input.Days, operatorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "License extended"
	if lic.Status == models.LicenseStatusSuspended {
		message = "License extended; it remains suspended"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     message,
		"valid_until": lic.ExpiryDate(),
		"status":      lic.Status,
	})
}

func (h *AdminHandler) ResetHardware(c *gin.Context) {
	if err := h.admin.ResetHardware(c.Request.Context(), c.Param("key"), operatorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hardware binding cleared"})
}

// Diagnose runs a real verification labelled as an admin diagnostic. The
// outcome is returned with 200 whatever it is.
func (h *AdminHandler) Diagnose(c *gin.Context) {
	var input struct {
		LicenseKey string `json:"license_key" binding:"required"`
		HardwareID string `json:"hardware_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.admin.Diagnose(c.Request.Context(), input.LicenseKey, input.HardwareID, operatorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderOutcome(outcome))
}

func operatorFrom(c *gin.Context) service.Operator {
	op := service.Operator{Address: c.ClientIP()}
	if admin, ok := middleware.CurrentAdmin(c); ok {
		op.Username = admin.Username
	}
	return op
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
	case errors.Is(err, store.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{"error": "License key already exists"})
	case errors.Is(err, keylock.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "License busy, retry"})
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("admin request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server Error"})
	}
}
