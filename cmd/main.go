package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/studyforge/studyforge-backend/internal/db"
	"github.com/studyforge/studyforge-backend/internal/handlers"
	"github.com/studyforge/studyforge-backend/internal/middleware"
	"github.com/studyforge/studyforge-backend/internal/pkg/envutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/server"
	"github.com/studyforge/studyforge-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecret := envutil.GetEnv("JWT_SECRET", "", log)
	downloadTimeout := envutil.GetEnvAsSeconds("DOWNLOAD_TIMEOUT_SECONDS", 15*time.Second, log)
	extractTimeout := envutil.GetEnvAsSeconds("EXTRACT_TIMEOUT_SECONDS", 60*time.Second, log)
	generateTimeout := envutil.GetEnvAsSeconds("GENERATE_TIMEOUT_SECONDS", 180*time.Second, log)
	feedbackTimeout := envutil.GetEnvAsSeconds("FEEDBACK_TIMEOUT_SECONDS", 120*time.Second, log)
	redisAddr := envutil.GetEnv("REDIS_ADDR", "", log)
	allowOrigins := envutil.GetEnv("CORS_ALLOW_ORIGINS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional; extraction dedup falls back to in-process only)
	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
	}

	// Model providers
	log.Info("Setting up model providers from main...")
	providers := map[string]llm.Client{}
	if openaiClient, err := llm.NewOpenAIClientFromEnv(log); err != nil {
		log.Warn("OpenAI provider not configured", "error", err)
	} else {
		providers["openai"] = openaiClient
	}
	if googleClient, err := llm.NewGoogleClientFromEnv(log); err != nil {
		log.Warn("Google provider not configured", "error", err)
	} else {
		providers["google"] = googleClient
	}
	if len(providers) == 0 {
		log.Error("No model providers configured")
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	documentRepo := repos.NewDocumentRepo(thePG, log)
	extractedContentRepo := repos.NewExtractedContentRepo(thePG, log)
	studyKitRepo := repos.NewStudyKitRepo(thePG, log)
	examRepo := repos.NewExamRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	modelCallLogRepo := repos.NewModelCallLogRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService, err := services.NewAuthService(log, jwtSecret)
	if err != nil {
		log.Error("Could not init AuthService", "error", err)
		os.Exit(1)
	}
	modelPolicy := services.NewModelPolicy(log, providers, modelCallLogRepo)
	extractor := services.NewContentExtractor(log, modelPolicy)
	extractionService := services.NewExtractionService(
		thePG,
		log,
		documentRepo,
		extractedContentRepo,
		extractor,
		services.NewHTTPDownloader(),
		rdb,
		downloadTimeout,
		extractTimeout,
	)
	generationService := services.NewGenerationService(log, modelPolicy)
	gradingService := services.NewGradingService(log, modelPolicy)
	documentService := services.NewDocumentService(thePG, log, documentRepo)
	studyKitService := services.NewStudyKitService(thePG, log, studyKitRepo, documentRepo, extractionService, generationService, generateTimeout)
	examService := services.NewExamService(thePG, log, examRepo, documentRepo, extractionService, generationService, gradingService, generateTimeout, feedbackTimeout)
	assignmentService := services.NewAssignmentService(thePG, log, assignmentRepo, documentRepo, extractionService, generationService, generateTimeout)

	// Handlers
	log.Info("Setting up handlers from main...")
	documentHandler := handlers.NewDocumentHandler(log, documentService)
	studyKitHandler := handlers.NewStudyKitHandler(log, studyKitService)
	examHandler := handlers.NewExamHandler(log, examService)
	assignmentHandler := handlers.NewAssignmentHandler(log, assignmentService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if allowOrigins != "" {
		origins = strings.Split(allowOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		DocumentHandler:   documentHandler,
		StudyKitHandler:   studyKitHandler,
		ExamHandler:       examHandler,
		AssignmentHandler: assignmentHandler,
		AllowOrigins:      origins,
	})

	port := envutil.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
