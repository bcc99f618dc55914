package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// AuthController handles local registration, login and logout.
type AuthController struct {
	users     *services.UserService
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
	guard     *utils.LoginGuard
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.UserService, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist, guard *utils.LoginGuard) *AuthController {
	return &AuthController{users: users, tokens: tokens, blacklist: blacklist, guard: guard}
}

// Register creates an account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	a.respondWithToken(ctx, user)
}

// Login authenticates a user with username and password. Repeated
// failures from one client lock it out for a while.
func (a *AuthController) Login(ctx *gin.Context) {
	client := ctx.ClientIP()
	if a.guard.IsBanned(ctx.Request.Context(), client) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed logins, try again later")
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrBadCredentials) {
		if n := a.guard.RecordFailure(ctx.Request.Context(), client); n > 1 {
			utils.Sugar.Infow("failed login", "client", client, "failures", n)
		}
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid username or password")
		return
	}
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	a.guard.Reset(ctx.Request.Context(), client)
	a.respondWithToken(ctx, user)
}

// Logout revokes the presented token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := a.tokens.Parse(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	if claims.ExpiresAt != nil {
		a.blacklist.Revoke(ctx.Request.Context(), token, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	user, err := a.users.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": sanitizeUserResponse(user)})
}

func (a *AuthController) respondWithToken(ctx *gin.Context, user models.User) {
	token, expiresAt, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		utils.Sugar.Errorw("issue token failed", "user_id", user.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       sanitizeUserResponse(user),
	})
}

func sanitizeUserResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"created_at": user.CreatedAt,
		"is_admin":   config.Get().IsAdmin(user.Username),
	}
}
