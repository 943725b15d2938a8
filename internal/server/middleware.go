package server

import (
	"net/http"
	"strings"
	"time"

	"tasktracker/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TokenCookie     = "jwt_token"
	RequestIDHeader = "X-Request-ID"

	identityKey  = "identity"
	requestIDKey = "request_id"
	langKey      = "lang"
)

// RequestID reuses an inbound X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := strings.TrimSpace(ctx.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(RequestIDHeader, id)
		ctx.Next()
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path

		ctx.Next()

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("ip", ctx.ClientIP()),
			zap.String("request_id", ctx.GetString(requestIDKey)),
			zap.Duration("latency", time.Since(start)),
		}
		if identity, ok := identityFrom(ctx); ok {
			fields = append(fields, zap.String("user_id", identity.UserID))
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.String("errors", ctx.Errors.String()))
		}

		if ctx.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

// Language stores the raw Accept-Language value; the translator does the matching.
func Language(fallback string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lang := ctx.GetHeader("Accept-Language")
		if lang == "" {
			lang = fallback
		}
		ctx.Set(langKey, lang)
		ctx.Next()
	}
}

// Authenticate resolves the bearer credential from the Authorization header,
// or the jwt_token cookie, and attaches the identity to the request.
func (api *TaskAPI) Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, err := api.identities.Verify(bearerToken(ctx))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": api.message(ctx, "unauthorized")})
			return
		}
		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func identityFrom(ctx *gin.Context) (models.Identity, bool) {
	value, exists := ctx.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

// currentIdentity is only called behind Authenticate, so the zero value never
// reaches a service; services reject it anyway.
func currentIdentity(ctx *gin.Context) models.Identity {
	identity, _ := identityFrom(ctx)
	return identity
}

func langFrom(ctx *gin.Context) string {
	return ctx.GetString(langKey)
}
