package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/studyforge/studyforge-backend/internal/handlers"
	"github.com/studyforge/studyforge-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	DocumentHandler   *handlers.DocumentHandler
	StudyKitHandler   *handlers.StudyKitHandler
	ExamHandler       *handlers.ExamHandler
	AssignmentHandler *handlers.AssignmentHandler
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Models
	api.GET("/models", handlers.ListModels)

	// Documents
	api.POST("/documents", cfg.DocumentHandler.Register)
	api.GET("/documents/:id", cfg.DocumentHandler.Get)

	// Study kits
	api.POST("/study-kits", cfg.StudyKitHandler.Create)
	api.GET("/study-kits/:id", cfg.StudyKitHandler.Get)
	api.POST("/study-kits/:id/retry", cfg.StudyKitHandler.Retry)

	// Exams
	api.POST("/exams", cfg.ExamHandler.Create)
	api.GET("/exams/:id", cfg.ExamHandler.Get)
	api.POST("/exams/:id/retry", cfg.ExamHandler.Retry)
	api.POST("/exams/:id/attempts", cfg.ExamHandler.SubmitAttempt)
	api.GET("/exams/:id/attempts", cfg.ExamHandler.ListAttempts)

	// Assignments
	api.POST("/assignments", cfg.AssignmentHandler.Create)
	api.GET("/assignments/:id", cfg.AssignmentHandler.Get)
	api.POST("/assignments/:id/retry", cfg.AssignmentHandler.Retry)

	return router
}
