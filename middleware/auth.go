package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used to revoke it on logout.
	ContextTokenKey = "token"
)

// bearerToken extracts the token of an "Authorization: Bearer" header.
// code is 0 when the header is absent.
func bearerToken(ctx *gin.Context) (token string, code int, msg string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", 40101, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

func authenticate(ctx *gin.Context, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) (int, string) {
	token, code, msg := bearerToken(ctx)
	if code != 0 {
		return code, msg
	}
	if blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), token) {
		return 40104, "token revoked"
	}
	claims, err := tokens.Parse(token)
	if err != nil {
		return 40105, "invalid token"
	}
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, token)
	return 0, ""
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if code, msg := authenticate(ctx, tokens, blacklist); code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is presented and
// lets anonymous requests through otherwise.
func OptionalAuth(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		_, _ = authenticate(ctx, tokens, blacklist)
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !config.Get().IsAdmin(ctx.GetString(ContextUsernameKey)) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
