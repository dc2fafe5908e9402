package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/store"
)

const (
	ContextAdminKey   = "admin"
	ContextAdminIDKey = "adminID"
	tokenIssuer       = "ironlock"
)

var ErrInvalidToken = errors.New("invalid token")

type AdminFinder interface {
	FindAdminByID(ctx context.Context, id uint) (*models.AdminUser, error)
}

type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	admins AdminFinder
	secret []byte
	ttl    time.Duration
}

func NewAuthMiddleware(admins AdminFinder, secret string, ttl time.Duration) *AuthMiddleware {
	return &AuthMiddleware{admins: admins, secret: []byte(secret), ttl: ttl}
}

func (m *AuthMiddleware) GenerateToken(user models.AdminUser) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Authenticate resolves a bearer token to an active admin account.
func (m *AuthMiddleware) Authenticate(ctx context.Context, tokenStr string) (*models.AdminUser, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	user, err := m.admins.FindAdminByID(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrInvalidToken)
	}
	return user, nil
}

func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		user, err := m.Authenticate(c.Request.Context(), tokenStr)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidToken), errors.Is(err, store.ErrAdminNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		c.Set(ContextAdminKey, *user)
		c.Set(ContextAdminIDKey, user.ID)
		c.Next()
	}
}

// BearerToken reads the token from the Authorization header, falling back
// to the token query parameter for websocket upgrades.
func BearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

func CurrentAdmin(c *gin.Context) (models.AdminUser, bool) {
	v, ok := c.Get(ContextAdminKey)
	if !ok {
		return models.AdminUser{}, false
	}
	user, ok := v.(models.AdminUser)
	return user, ok
}
