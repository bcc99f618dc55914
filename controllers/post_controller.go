package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// PostController serves the home timeline, single posts and comments.
type PostController struct {
	posts    *services.PostService
	cache    *utils.ResponseCache
	pageSize int
	cacheTTL time.Duration
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, cache *utils.ResponseCache, pageSize int, cacheTTL time.Duration) *PostController {
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	return &PostController{posts: posts, cache: cache, pageSize: pageSize, cacheTTL: cacheTTL}
}

type postRequest struct {
	Text    string `json:"text" binding:"required"`
	GroupID *uint  `json:"group"`
	Image   string `json:"image"`
}

func (r postRequest) input() services.PostInput {
	return services.PostInput{Text: r.Text, GroupID: r.GroupID, Image: r.Image}
}

// ListPosts returns one page of the home timeline. Rendered pages are
// cached for every viewer alike and are not refreshed by new posts until
// they expire or the cache is cleared.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page := utils.ParsePageNumber(ctx.Query("page"))

	b, err := p.cache.GetOrCompute(ctx.Request.Context(), utils.IndexPageKey(page), p.cacheTTL, func(c context.Context) ([]byte, error) {
		pg, err := p.posts.IndexPage(c, page, p.pageSize)
		if err != nil {
			return nil, err
		}
		return utils.EncodeSuccess(utils.PagePayload(pg))
	})
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.SuccessBytes(ctx, b)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.GetPost(ctx.Request.Context(), postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.posts.CreatePost(ctx.Request.Context(), userID, req.input())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"post": post})
}

// UpdatePost lets the author edit a post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.posts.UpdatePost(ctx.Request.Context(), userID, postID, req.input())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post owned by the caller, or any post for admins.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), userID, postID, isAdmin(ctx)); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": postID})
}

// ListComments returns the comments of a post.
func (p *PostController) ListComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comments, err := p.posts.ListComments(ctx.Request.Context(), postID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": comments})
}

// CreateComment adds a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	comment, err := p.posts.AddComment(ctx.Request.Context(), userID, postID, req.Text)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"comment": comment})
}
