package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// GroupController serves group listings and group timelines.
type GroupController struct {
	groups   *services.GroupService
	posts    *services.PostService
	pageSize int
}

// NewGroupController creates a new GroupController instance.
func NewGroupController(groups *services.GroupService, posts *services.PostService, pageSize int) *GroupController {
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	return &GroupController{groups: groups, posts: posts, pageSize: pageSize}
}

// ListGroups returns every group.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	groups, err := g.groups.ListGroups(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

// GroupPosts returns a group and one page of its posts.
func (g *GroupController) GroupPosts(ctx *gin.Context) {
	page := utils.ParsePageNumber(ctx.Query("page"))
	group, posts, err := g.posts.GroupPage(ctx.Request.Context(), ctx.Param("slug"), page, g.pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	payload := utils.PagePayload(posts)
	payload["group"] = group
	utils.Success(ctx, payload)
}

// CreateGroup is admin only.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Slug        string `json:"slug" binding:"required"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	group, err := g.groups.CreateGroup(ctx.Request.Context(), services.GroupInput{
		Title: req.Title, Slug: req.Slug, Description: req.Description,
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"group": group})
}

// DeleteGroup is admin only; the group's posts are kept.
func (g *GroupController) DeleteGroup(ctx *gin.Context) {
	slug := ctx.Param("slug")
	if err := g.groups.DeleteGroup(ctx.Request.Context(), slug); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": slug})
}
