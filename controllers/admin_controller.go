package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
)

// AdminController exposes maintenance endpoints to admin users.
type AdminController struct {
	cache *utils.ResponseCache
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(cache *utils.ResponseCache) *AdminController {
	return &AdminController{cache: cache}
}

// ClearIndexCache drops every cached home timeline page.
func (a *AdminController) ClearIndexCache(ctx *gin.Context) {
	if err := a.cache.InvalidatePrefix(ctx.Request.Context(), utils.IndexCacheKey); err != nil {
		utils.Sugar.Errorw("index cache invalidation failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to clear cache")
		return
	}
	utils.Sugar.Infow("index cache cleared", "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"cleared": utils.IndexCacheKey})
}
