package router

import (
	"log/slog"

	"brainshare/internal/handlers"
	"brainshare/internal/middleware"
	"brainshare/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const SessionName = "brainshare_session"

type Settings struct {
	SessionSecret string
	// SiteURL is the public base used for absolute links in the RSS feed.
	SiteURL string
	Logger  *slog.Logger
}

// New builds the gin engine with sessions, logging, gzip and every route.
func New(eng *services.Engine, s Settings) *gin.Engine {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(s.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(SessionName, store))

	RegisterRoutes(r, eng)
	r.GET("/feed.xml", handlers.NewFeedHandler(eng, s.SiteURL).RSS)
	return r
}

// RegisterRoutes mounts the JSON API. Session middleware must already be
// installed on r.
func RegisterRoutes(r *gin.Engine, eng *services.Engine) {
	authHandler := handlers.NewAuthHandler(eng)
	postHandler := handlers.NewPostHandler(eng)
	commentHandler := handlers.NewCommentHandler(eng)
	userHandler := handlers.NewUserHandler(eng)
	companionHandler := handlers.NewCompanionHandler(eng)
	notificationHandler := handlers.NewNotificationHandler(eng)
	adminHandler := handlers.NewAdminHandler(eng)

	r.Use(middleware.LoadUser(eng))

	// 公共路由 (Public Routes)
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// 帖子、排行榜、用户主页
	r.GET("/posts", postHandler.List)
	r.GET("/posts/:pid", postHandler.Detail)
	r.GET("/leaderboard", userHandler.Leaderboard)
	r.GET("/users/:id", userHandler.Profile)
	r.GET("/companion/templates", companionHandler.Templates)

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.DELETE("/posts/:pid", postHandler.Delete)
		authorized.POST("/posts/:pid/comments", commentHandler.Create)
		authorized.POST("/posts/:pid/like", postHandler.Like)
		authorized.POST("/posts/:pid/report", postHandler.Report)
		authorized.POST("/comments/:cid/solve", commentHandler.Solve)

		authorized.POST("/users/me", userHandler.UpdateProfile)

		authorized.GET("/achievements", userHandler.Achievements)
		authorized.POST("/achievements/evaluate", userHandler.EvaluateAchievements)

		authorized.GET("/companion", companionHandler.Show)
		authorized.POST("/companion/adopt", companionHandler.Adopt)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.GET("/notifications/unread", notificationHandler.Unread)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired())
	{
		admin.POST("/users/:id/role", adminHandler.ChangeRole)
		admin.POST("/posts/:pid/status", adminHandler.ModeratePost)
	}
}
