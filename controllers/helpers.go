package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
)

// respondServiceError maps the error taxonomy to an HTTP status and a
// business code.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidArgument):
		utils.Error(ctx, http.StatusBadRequest, 40000, err.Error())
	case errors.Is(err, utils.ErrInvalidOperation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, utils.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, err.Error())
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
	case errors.Is(err, utils.ErrTimeout):
		utils.Sugar.Warnw("store timeout", "path", ctx.FullPath(), "err", err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "store timeout, retry later")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
	}
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func mustUserID(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

func isAdmin(ctx *gin.Context) bool {
	return config.Get().IsAdmin(ctx.GetString(middleware.ContextUsernameKey))
}
