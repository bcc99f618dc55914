package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// StatsController provides site statistics such as counts and today's page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics. A failing counter reports 0
// instead of failing the whole endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(model interface{}) int64 {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			utils.Sugar.Warnw("stats count failed", "model", fmt.Sprintf("%T", model), "err", err)
			return 0
		}
		return n
	}

	// rows are keyed by local midnight, see middleware.PageViewRecorder
	var todayViews int64
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.PageView{}).
		Where("date >= ? AND date < ?", today, today.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(count),0)").
		Scan(&todayViews).Error; err != nil {
		todayViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    count(&models.User{}),
		"post_count":    count(&models.Post{}),
		"comment_count": count(&models.Comment{}),
		"group_count":   count(&models.Group{}),
		"follow_count":  count(&models.Follow{}),
		"today_views":   todayViews,
	})
}
