package service

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// TOTPHeader carries the operator's one-time code on mutating routes.
const TOTPHeader = "X-TOTP-Code"

type AuthService struct {
	logger     *zap.Logger
	cronSecret string
	totpSecret string
}

func NewAuthService(logger *zap.Logger, cronSecret, totpSecret string) *AuthService {
	return &AuthService{
		logger:     logger,
		cronSecret: cronSecret,
		totpSecret: totpSecret,
	}
}

// GenerateSecret creates a new TOTP secret and its otpauth:// provisioning URL.
func (a *AuthService) GenerateSecret(issuer, accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

func (a *AuthService) ValidateToken(token string) bool {
	valid := totp.Validate(strings.TrimSpace(token), a.totpSecret)
	if !valid {
		a.logger.Warn("TOTP token validation failed")
	}
	return valid
}

// ValidateCronToken compares an Authorization header value against the cron
// secret. An unset secret rejects every request.
func (a *AuthService) ValidateCronToken(header string) bool {
	if a.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.cronSecret)) == 1
}

// CronMiddleware guards the scheduled publish trigger.
func (a *AuthService) CronMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.ValidateCronToken(c.GetHeader("Authorization")) {
			a.logger.Warn("Unauthorized cron request", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// OperatorMiddleware requires a valid TOTP code on mutating requests when a
// TOTP secret is configured.
func (a *AuthService) OperatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.totpSecret == "" {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		code := c.GetHeader(TOTPHeader)
		if code == "" || !a.ValidateToken(code) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}
