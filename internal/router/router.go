package router

import (
	"net/http"
	"time"

	"github.com/formlio/surveybot-backend/internal/config"
	"github.com/formlio/surveybot-backend/internal/handler"
	"github.com/formlio/surveybot-backend/internal/middleware"
	"github.com/formlio/surveybot-backend/internal/response"
	"github.com/formlio/surveybot-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Survey   *handler.SurveyHandler
	Question *handler.QuestionHandler
	Rule     *handler.RuleHandler
	Respond  *handler.RespondHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Survey lifecycle
		adminAPI.GET("/surveys", handlers.Survey.ListSurveys)
		adminAPI.POST("/surveys", handlers.Survey.CreateSurvey)
		adminAPI.GET("/surveys/:survey_id", handlers.Survey.GetSurvey)
		adminAPI.PUT("/surveys/:survey_id", handlers.Survey.UpdateSurvey)
		adminAPI.DELETE("/surveys/:survey_id", handlers.Survey.DeleteSurvey)
		adminAPI.POST("/surveys/:survey_id/publish", handlers.Survey.PublishSurvey)
		adminAPI.POST("/surveys/:survey_id/close", handlers.Survey.CloseSurvey)
		adminAPI.GET("/surveys/:survey_id/answers", handlers.Survey.ListAnswers)

		// Flow tooling
		adminAPI.GET("/surveys/:survey_id/flow/validate", handlers.Survey.ValidateFlow)
		adminAPI.GET("/surveys/:survey_id/flow/overview", handlers.Survey.FlowOverview)
		adminAPI.POST("/surveys/:survey_id/resolve-next", handlers.Rule.PreviewResolve)

		// Question management
		adminAPI.GET("/surveys/:survey_id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/surveys/:survey_id/questions", handlers.Question.CreateQuestion)
		adminAPI.PUT("/surveys/:survey_id/questions/order", handlers.Question.ReorderQuestions)
		adminAPI.GET("/surveys/:survey_id/questions/:question_id", handlers.Question.GetQuestion)
		adminAPI.PUT("/surveys/:survey_id/questions/:question_id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/surveys/:survey_id/questions/:question_id", handlers.Question.DeleteQuestion)

		// Branching rules
		adminAPI.GET("/surveys/:survey_id/questions/:question_id/rules", handlers.Rule.ListRules)
		adminAPI.POST("/surveys/:survey_id/questions/:question_id/rules", handlers.Rule.CreateRule)
		adminAPI.PATCH("/surveys/:survey_id/questions/:question_id/rules/:target_id", handlers.Rule.UpdateRule)
		adminAPI.DELETE("/surveys/:survey_id/questions/:question_id/rules/:target_id", handlers.Rule.DeleteRule)
	}

	// ─── 3. Respond Group (Public, Rate Limited) ───────────────────────
	// The bot runtime hits these per respondent message; limits are per-IP.
	respondLimiter := middleware.NewRateLimiter(120, time.Minute)
	respondAPI := router.Group("/api/v1/respond")
	respondAPI.Use(respondLimiter.Middleware())
	{
		respondAPI.GET("/:survey_id/start", handlers.Respond.StartSurvey)
		respondAPI.GET("/:survey_id/questions/:question_id", handlers.Respond.GetQuestion)
		respondAPI.POST("/:survey_id/next", handlers.Respond.ResolveNext)
		respondAPI.POST("/:survey_id/answers", handlers.Respond.SubmitAnswer)
	}

	return router
}
