package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// Dependencies are the long lived resources the handlers share.
type Dependencies struct {
	DB        *gorm.DB
	Cache     *utils.ResponseCache
	Tokens    *utils.TokenManager
	Blacklist *utils.TokenBlacklist
	Guard     *utils.LoginGuard
	Events    utils.EventPublisher
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	timeout := cfg.StoreTimeout
	userService := services.NewUserService(deps.DB, timeout)
	postService := services.NewPostService(deps.DB, timeout, deps.Events)
	groupService := services.NewGroupService(deps.DB, timeout)
	followService := services.NewFollowService(deps.DB, timeout, deps.Events)
	feedService := services.NewFeedService(deps.DB, timeout, followService)

	authController := controllers.NewAuthController(userService, deps.Tokens, deps.Blacklist, deps.Guard)
	postController := controllers.NewPostController(postService, deps.Cache, cfg.PostsPerPage, cfg.IndexCacheTTL())
	groupController := controllers.NewGroupController(groupService, postService, cfg.PostsPerPage)
	followController := controllers.NewFollowController(followService, feedService, postService, cfg.PostsPerPage)
	adminController := controllers.NewAdminController(deps.Cache)
	statsController := controllers.NewStatsController(deps.DB)

	authRequired := middleware.AuthRequired(deps.Tokens, deps.Blacklist)
	optionalAuth := middleware.OptionalAuth(deps.Tokens, deps.Blacklist)
	rateLimit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	pageViews := middleware.PageViewRecorder(deps.DB)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(rateLimit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", pageViews, postController.GetPost)
	api.GET("/posts/:id/comments", postController.ListComments)
	api.GET("/groups", groupController.ListGroups)
	api.GET("/groups/:slug", pageViews, groupController.GroupPosts)
	api.GET("/profile/:username", optionalAuth, pageViews, followController.Profile)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(authRequired, rateLimit)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.POST("/profile/:username/follow", followController.Follow)
	protected.DELETE("/profile/:username/follow", followController.Unfollow)
	protected.GET("/follow", followController.Feed)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired())
	admin.POST("/groups", groupController.CreateGroup)
	admin.DELETE("/groups/:slug", groupController.DeleteGroup)
	admin.DELETE("/admin/cache/index", adminController.ClearIndexCache)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
