// Package handler provides HTTP handlers for the API.
package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/idgen"
	"github.com/gamelens/gamelens/pkg/logger"
)

// adminUsername is the single admin account name
const adminUsername = "admin"

// generatedSecretLength is the byte length of a first-start JWT secret
const generatedSecretLength = 48

// AuthHandler handles authentication-related HTTP requests.
// The admin password hash and a generated JWT secret live in system settings;
// a secret configured in the YAML file takes precedence.
type AuthHandler struct {
	cfg      *config.AuthConfig
	settings store.SettingsStore

	mu     sync.Mutex
	secret string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.AuthConfig, settings store.SettingsStore) *AuthHandler {
	return &AuthHandler{cfg: cfg, settings: settings}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// jwtSecret resolves the signing secret: configured value wins; otherwise the
// stored one; on first start a secret is generated and persisted.
func (h *AuthHandler) jwtSecret() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.secret != "" {
		return h.secret, nil
	}
	if h.cfg.JWTSecret != "" {
		h.secret = h.cfg.JWTSecret
		return h.secret, nil
	}

	stored, err := h.settings.GetValue(string(model.SettingCategoryAuth), model.SettingKeyJWTSecret)
	if err != nil {
		return "", err
	}
	if stored != "" {
		h.secret = stored
		return h.secret, nil
	}

	generated := idgen.NewSecureSecret(generatedSecretLength)
	if err := h.settings.SetValue(string(model.SettingCategoryAuth), model.SettingKeyJWTSecret, generated); err != nil {
		return "", err
	}
	logger.Info("Generated admin JWT secret")
	h.secret = generated
	return h.secret, nil
}

// passwordHash returns the stored admin bcrypt hash, "" when not set up.
func (h *AuthHandler) passwordHash() (string, error) {
	return h.settings.GetValue(string(model.SettingCategoryAuth), model.SettingKeyAdminPasswordHash)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}

	hash, err := h.passwordHash()
	if err != nil {
		logger.Error("Failed to load admin credentials", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Internal server error",
		})
		return
	}
	if hash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Admin password is not set",
		})
		return
	}

	if req.Username != adminUsername ||
		bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		logger.Warn("Invalid login attempt", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Invalid username or password",
		})
		return
	}

	var lifetime time.Duration
	if req.RememberMe {
		days := h.cfg.RememberDays
		if days <= 0 {
			days = 7
		}
		lifetime = time.Duration(days) * 24 * time.Hour
	} else {
		hours := h.cfg.TokenExpiry
		if hours <= 0 {
			hours = 24
		}
		lifetime = time.Duration(hours) * time.Hour
	}
	expiresAt := time.Now().Add(lifetime)

	claims := &Claims{
		Username: req.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gamelens",
		},
	}

	secret, err := h.jwtSecret()
	if err != nil {
		logger.Error("Failed to resolve JWT secret", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to generate token",
		})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		logger.Error("Failed to sign JWT token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to generate token",
		})
		return
	}

	logger.Info("User logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, LoginResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username, exists := c.Get("username")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": username,
	})
}

// ValidateToken validates a JWT token and returns the username.
// Implements middleware.TokenValidator.
func (h *AuthHandler) ValidateToken(tokenString string) (string, error) {
	secret, err := h.jwtSecret()
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.Username, nil
	}

	return "", jwt.ErrSignatureInvalid
}

// SetupStatusResponse represents the setup status response
type SetupStatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

// SetupPasswordRequest represents the setup password request body
type SetupPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// GetSetupStatus handles GET /api/v1/auth/setup/status.
// Returns 404 once a password is set, to hide the API's existence.
func (h *AuthHandler) GetSetupStatus(c *gin.Context) {
	hash, err := h.passwordHash()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Internal server error",
		})
		return
	}
	if hash != "" {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    errors.ErrCodeNotFound,
			"message": "Not found",
		})
		return
	}

	c.JSON(http.StatusOK, SetupStatusResponse{NeedsSetup: true})
}

// SetupPassword handles POST /api/v1/auth/setup.
// Sets the admin password on first start; 404 once one exists.
func (h *AuthHandler) SetupPassword(c *gin.Context) {
	hash, err := h.passwordHash()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Internal server error",
		})
		return
	}
	if hash != "" {
		logger.Warn("Attempt to access setup API when password already set",
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusNotFound, gin.H{
			"code":    errors.ErrCodeNotFound,
			"message": "Not found",
		})
		return
	}

	var req SetupPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}

	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Passwords do not match",
		})
		return
	}

	if err := config.ValidatePassword(req.Password, config.DefaultPasswordRequirements()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": fmt.Sprintf("Password validation failed: %v", err),
		})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Failed to generate password hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to generate password hash",
		})
		return
	}

	if err := h.settings.SetValue(string(model.SettingCategoryAuth),
		model.SettingKeyAdminPasswordHash, string(newHash)); err != nil {
		logger.Error("Failed to save admin password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to save password",
		})
		return
	}

	logger.Info("Admin password set successfully")

	c.JSON(http.StatusOK, gin.H{
		"message": "Password set successfully",
	})
}
