package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/middleware"
	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/store"
)

type AdminAccounts interface {
	FindAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateAdminPassword(ctx context.Context, id uint, password string) error
}

type loginAttempt struct {
	username  string
	ipAddress string
	timestamp time.Time
	success   bool
}

type AuthHandler struct {
	accounts         AdminAccounts
	authMiddleware   *middleware.AuthMiddleware
	loginAttempts    []loginAttempt
	rateLimitWindow  time.Duration
	maxLoginAttempts int
	blockDuration    time.Duration
	blockedIPs       map[string]time.Time
	blockedUsernames map[string]time.Time
	attemptsMutex    sync.Mutex
}

func NewAuthHandler(accounts AdminAccounts, authMiddleware *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{
		accounts:         accounts,
		authMiddleware:   authMiddleware,
		loginAttempts:    []loginAttempt{},
		rateLimitWindow:  10 * time.Minute,
		maxLoginAttempts: 5,
		blockDuration:    15 * time.Minute,
		blockedIPs:       make(map[string]time.Time),
		blockedUsernames: make(map[string]time.Time),
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(input.Username)
	ipAddress := c.ClientIP()

	if h.isIPBlocked(ipAddress) || h.isUsernameBlocked(strings.ToLower(username)) {
		log.Warn().Str("username", username).Str("client_ip", ipAddress).Msg("login blocked")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed login attempts. Please try again later."})
		return
	}

	user, err := h.accounts.FindAdminByUsername(c.Request.Context(), username)
	switch {
	case errors.Is(err, store.ErrAdminNotFound):
		h.recordLoginAttempt(username, ipAddress, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	case err != nil:
		log.Error().Err(err).Msg("load admin user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !user.Active {
		h.recordLoginAttempt(username, ipAddress, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is disabled"})
		return
	}

	if !user.CheckPassword(input.Password) {
		h.recordLoginAttempt(username, ipAddress, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := h.authMiddleware.GenerateToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	h.recordLoginAttempt(username, ipAddress, true)
	log.Info().Str("username", user.Username).Str("client_ip", ipAddress).Msg("admin login")

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"user":       user,
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var input struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validatePasswordStrength(input.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := middleware.CurrentAdmin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	if !user.CheckPassword(input.OldPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	if err := h.accounts.UpdateAdminPassword(c.Request.Context(), user.ID, input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func (h *AuthHandler) recordLoginAttempt(username, ipAddress string, success bool) {
	h.attemptsMutex.Lock()
	defer h.attemptsMutex.Unlock()

	username = strings.ToLower(username)
	h.loginAttempts = append(h.loginAttempts, loginAttempt{
		username:  username,
		ipAddress: ipAddress,
		timestamp: time.Now(),
		success:   success,
	})

	if success {
		delete(h.blockedIPs, ipAddress)
		delete(h.blockedUsernames, username)
		return
	}

	cutoffTime := time.Now().Add(-h.rateLimitWindow)
	recent := h.loginAttempts[:0]
	for _, a := range h.loginAttempts {
		if a.timestamp.After(cutoffTime) {
			recent = append(recent, a)
		}
	}
	h.loginAttempts = recent

	ipFailures, usernameFailures := 0, 0
	for _, a := range h.loginAttempts {
		if a.success {
			continue
		}
		if a.ipAddress == ipAddress {
			ipFailures++
		}
		if a.username == username {
			usernameFailures++
		}
	}

	if ipFailures >= h.maxLoginAttempts {
		h.blockedIPs[ipAddress] = time.Now().Add(h.blockDuration)
	}
	if usernameFailures >= h.maxLoginAttempts {
		h.blockedUsernames[username] = time.Now().Add(h.blockDuration)
	}
}

func (h *AuthHandler) isIPBlocked(ipAddress string) bool {
	return h.isBlocked(h.blockedIPs, ipAddress)
}

func (h *AuthHandler) isUsernameBlocked(username string) bool {
	return h.isBlocked(h.blockedUsernames, username)
}

func (h *AuthHandler) isBlocked(blocked map[string]time.Time, key string) bool {
	h.attemptsMutex.Lock()
	defer h.attemptsMutex.Unlock()

	blockUntil, exists := blocked[key]
	if !exists {
		return false
	}

	if time.Now().After(blockUntil) {
		delete(blocked, key)
		return false
	}

	return true
}

var specialChar = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)

func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain an uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain a lowercase letter")
	}
	if !hasDigit {
		return errors.New("password must contain a digit")
	}
	if !specialChar.MatchString(password) {
		return errors.New("password must contain a special character (e.g. !@#$%^&*)")
	}

	return nil
}
