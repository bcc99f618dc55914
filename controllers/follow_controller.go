package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// FollowController serves profiles, follow edges and the personal feed.
type FollowController struct {
	follows  *services.FollowService
	feed     *services.FeedService
	posts    *services.PostService
	pageSize int
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(follows *services.FollowService, feed *services.FeedService, posts *services.PostService, pageSize int) *FollowController {
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	return &FollowController{follows: follows, feed: feed, posts: posts, pageSize: pageSize}
}

// Profile returns an author's counters and one page of their posts.
// Authentication is optional; it only fills the following flag.
func (f *FollowController) Profile(ctx *gin.Context) {
	viewerID, _ := getUserID(ctx)
	page := utils.ParsePageNumber(ctx.Query("page"))
	profile, posts, err := f.posts.ProfilePage(ctx.Request.Context(), viewerID, ctx.Param("username"), page, f.pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	payload := utils.PagePayload(posts)
	payload["profile"] = profile
	utils.Success(ctx, payload)
}

// Follow subscribes the caller to an author. Following twice is a no-op.
func (f *FollowController) Follow(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	handle := ctx.Param("username")
	if err := f.follows.FollowByHandle(ctx.Request.Context(), userID, handle); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"following": handle})
}

// Unfollow removes the caller's subscription to an author.
func (f *FollowController) Unfollow(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	handle := ctx.Param("username")
	if err := f.follows.UnfollowByHandle(ctx.Request.Context(), userID, handle); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"unfollowed": handle})
}

// Feed returns one page of posts by the authors the caller follows.
func (f *FollowController) Feed(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	page := utils.ParsePageNumber(ctx.Query("page"))
	posts, err := f.feed.BuildFeed(ctx.Request.Context(), userID, page, f.pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, utils.PagePayload(posts))
}
