package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fitlife/fitlife/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
	// ContextClaimsKey holds the parsed *utils.Claims, used by logout.
	ContextClaimsKey = "claims"
	ContextTokenKey  = "token"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		token, ok := bearerToken(authHeader)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}
		if utils.IsTokenBlacklisted(ctx.Request.Context(), token) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}
		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}
		setIdentity(ctx, token, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the viewer when a valid token is present and lets anonymous requests through.
// A revoked or invalid token is treated as anonymous.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token, ok := bearerToken(ctx.GetHeader("Authorization")); ok && !utils.IsTokenBlacklisted(ctx.Request.Context(), token) {
			if claims, err := utils.ParseToken(token); err == nil {
				setIdentity(ctx, token, claims)
			}
		}
		ctx.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setIdentity(ctx *gin.Context, token string, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextEmailKey, claims.Email)
	ctx.Set(ContextClaimsKey, claims)
	ctx.Set(ContextTokenKey, token)
}

// ViewerID returns the authenticated user id, or "" for anonymous requests.
func ViewerID(ctx *gin.Context) string {
	return ctx.GetString(ContextUserIDKey)
}
