package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/middleware"
)

// RouterDeps содержит обработчики и middleware для сборки роутера.
// WS и VoteLimit необязательны.
type RouterDeps struct {
	Quiz    *QuizHandler
	Session *SessionHandler
	Vote    *VoteHandler
	Result  *ResultHandler
	WS      *WSHandler
	Health  *HealthHandler

	VoteLimit   gin.HandlerFunc
	CORSOrigins []string
}

// NewRouter собирает gin роутер со всеми маршрутами API
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/health", deps.Health.Health)

	router.GET("/questions", deps.Quiz.GetQuestions)
	router.GET("/question/:num", middleware.ExtractIntParam("num", "questionNumber"), deps.Quiz.GetQuestion)
	router.GET("/active", deps.Quiz.GetActive)
	router.POST("/next", deps.Quiz.Next)

	router.POST("/session", deps.Session.CreateSession)
	session := router.Group("/session/:sessionName")
	{
		session.GET("", deps.Session.GetSession)
		session.POST("/next", deps.Session.NextQuestion)
	}

	if deps.VoteLimit != nil {
		router.POST("/vote", deps.VoteLimit, deps.Vote.SubmitVote)
	} else {
		router.POST("/vote", deps.Vote.SubmitVote)
	}

	results := router.Group("/results/:num")
	results.Use(middleware.ExtractIntParam("num", "questionNumber"))
	{
		results.GET("", deps.Result.GetResults)
		results.GET("/export", deps.Result.ExportResults)
	}

	if deps.WS != nil {
		router.GET("/ws", deps.WS.HandleConnection)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
