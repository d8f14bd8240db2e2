package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Sunbirds/config"
	"github.com/lshigami/Sunbirds/database"
	_ "github.com/lshigami/Sunbirds/docs" // Swagger docs - auto-generated
	adminctrl "github.com/lshigami/Sunbirds/internal/controller/admin"
	userctrl "github.com/lshigami/Sunbirds/internal/controller/user"
	"github.com/lshigami/Sunbirds/internal/logger"
	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/lshigami/Sunbirds/internal/notify"
	"github.com/lshigami/Sunbirds/internal/repository"
	"github.com/lshigami/Sunbirds/internal/service"
	"github.com/lshigami/Sunbirds/internal/session"
	"github.com/lshigami/Sunbirds/internal/store"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Sunbirds Language Test API
// @version 1.0
// @description API for taking timed language tests: attempt sessions with persistent answers, passage highlighting, speaking audio uploads and AI scoring.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			database.NewRedis,    // Provides *redis.Client
			service.NewMinioClient,
			NewGinEngine, // Provides *gin.Engine
		),

		// Attempt runtime plumbing
		fx.Provide(
			store.NewRedisKeyValue,
			notify.NewHub,
			func(hub *notify.Hub) notify.Publisher { return hub },
			notify.NewNavigator,
			notify.NewAlerter,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewResponseRepository,
			repository.NewSpeakingUploadRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewAdminTestService,
			service.NewUserTestService,
			service.NewGeminiLLMService,
			service.NewScoreConverterService,
			service.NewScoringService,
			service.NewMediaService,
			NewSessionRegistry,
			service.NewAttemptService,
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminTestController,
			userctrl.NewUserTestController,
			userctrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

// NewSessionRegistry wires the attempt runtime's collaborators together. The
// registry owns every live session; the scoring, storage and notification
// backends are shared.
func NewSessionRegistry(
	kv store.KeyValue,
	scoring service.ScoringService,
	media service.MediaService,
	nav *notify.Navigator,
	alerter *notify.Alerter,
) *session.Registry {
	return session.NewRegistry(session.Deps{
		KV:       kv,
		Scoring:  scoring,
		Uploader: media,
		Nav:      nav,
		Alerter:  alerter,
	})
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.DebugMode)

	r := gin.New()

	// Zerolog-backed request logging
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	// CORS Configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Be more specific in production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	hub *notify.Hub,
	adminTestCtrl *adminctrl.AdminTestController,
	userTestCtrl *userctrl.UserTestController,
	attemptCtrl *userctrl.AttemptController,
) {
	// Admin Routes (prefixed with /api/v1/admin)
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/tests", adminTestCtrl.CreateTest)
	}

	// User Routes (prefixed with /api/v1)
	userAPIGroup := router.Group("/api/v1")
	{
		// Test listing and details
		userAPIGroup.GET("/tests", userTestCtrl.GetAllTests)
		userAPIGroup.GET("/tests/:test_id", userTestCtrl.GetTestDetails)

		// Attempt lifecycle
		userAPIGroup.POST("/tests/:test_id/attempts", attemptCtrl.StartAttempt)
		userAPIGroup.GET("/tests/:test_id/my-attempts", attemptCtrl.GetUserTestAttempts)
		userAPIGroup.GET("/attempts/:attempt_id/state", attemptCtrl.GetAttemptState)
		userAPIGroup.GET("/attempts/:attempt_id/time", attemptCtrl.GetRemainingTime)
		userAPIGroup.PUT("/attempts/:attempt_id/answers", attemptCtrl.SaveAnswers)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
		userAPIGroup.DELETE("/attempts/:attempt_id/session", attemptCtrl.AbandonAttempt)
		userAPIGroup.GET("/attempts/:attempt_id/results", attemptCtrl.GetAttemptResults)

		// Speaking audio uploads
		userAPIGroup.POST("/attempts/:attempt_id/speaking/:question_id/audio", attemptCtrl.UploadAudio)

		// Passage highlighting
		userAPIGroup.POST("/attempts/:attempt_id/highlights/selection", attemptCtrl.CommitSelection)
		userAPIGroup.POST("/attempts/:attempt_id/highlights", attemptCtrl.AddHighlight)
		userAPIGroup.POST("/attempts/:attempt_id/highlights/:span_id/activate", attemptCtrl.ActivateHighlight)
		userAPIGroup.DELETE("/attempts/:attempt_id/highlights/toolbar", attemptCtrl.DismissToolbar)
		userAPIGroup.DELETE("/attempts/:attempt_id/highlights/:span_id", attemptCtrl.RemoveHighlight)
		userAPIGroup.GET("/attempts/:attempt_id/sections/:section_id/highlights", attemptCtrl.ListHighlights)
		userAPIGroup.DELETE("/attempts/:attempt_id/sections/:section_id/highlights", attemptCtrl.ClearSectionHighlights)
	}

	// WebSocket notifications (navigation, alerts, scoring events)
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Language Test API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Test{},
		&model.Section{},
		&model.Question{},
		&model.Attempt{},
		&model.Response{},
		&model.SpeakingUpload{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
