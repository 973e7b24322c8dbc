// Package router sets up the API routes for the application.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gamelens/gamelens/consts"
	"github.com/gamelens/gamelens/internal/analysis"
	"github.com/gamelens/gamelens/internal/api/handler"
	"github.com/gamelens/gamelens/internal/api/middleware"
	"github.com/gamelens/gamelens/internal/catalog"
	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/prompt"
	"github.com/gamelens/gamelens/internal/scraper"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/internal/vault"
)

// Deps carries the services the route handlers operate on.
type Deps struct {
	Store    store.Store
	Engine   *scraper.Engine
	Orch     *analysis.Orchestrator
	Catalog  *catalog.Service
	Prompts  *prompt.Store
	Creds    *vault.Credentials
	Steam    *steam.Client
}

// Setup configures all API routes
func Setup(r *gin.Engine, cfg *config.Config, deps Deps) {
	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))

	// OpenTelemetry tracing
	r.Use(otelgin.Middleware(consts.ServiceName))

	// Health check endpoint (public)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	// ============== Auth routes ==============

	authHandler := handler.NewAuthHandler(&cfg.Auth, deps.Store.Settings())

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		// First-start password setup (public until a password exists)
		auth.GET("/setup/status", authHandler.GetSetupStatus)
		auth.POST("/setup", authHandler.SetupPassword)
		auth.GET("/me", middleware.JWTAuth(authHandler), authHandler.Me)
	}

	// ============== Protected routes ==============

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(authHandler))

	// Application meta and status
	metaHandler := handler.NewMetaHandler(cfg.Subtitle, deps.Store)
	protected.GET("/meta", metaHandler.GetAppMeta)
	protected.GET("/status", metaHandler.GetStatus)

	// Ingestion control
	scrapeHandler := handler.NewScrapeHandler(deps.Engine)
	scrape := protected.Group("/scrape")
	{
		scrape.POST("/start", scrapeHandler.StartScrape)
		scrape.POST("/stop", scrapeHandler.StopScrape)
		scrape.GET("/status", scrapeHandler.GetScrapeStatus)
	}

	// Analysis jobs
	analysisHandler := handler.NewAnalysisHandler(deps.Orch, deps.Store)
	analysisRoutes := protected.Group("/analysis")
	{
		analysisRoutes.POST("/jobs", analysisHandler.StartJob)
		analysisRoutes.GET("/jobs", analysisHandler.ListJobs)
		analysisRoutes.GET("/jobs/:id", analysisHandler.GetJob)
		analysisRoutes.DELETE("/jobs/:id", analysisHandler.DeleteJob)
		analysisRoutes.GET("/jobs/:id/results", analysisHandler.ListJobResults)
		analysisRoutes.POST("/preview", analysisHandler.Preview)
		analysisRoutes.POST("/backfill", analysisHandler.Backfill)
	}

	// Tracked games
	gameHandler := handler.NewGameHandler(deps.Store, deps.Steam)
	games := protected.Group("/games")
	{
		games.GET("", gameHandler.ListGames)
		games.POST("", gameHandler.AddGame)
		games.GET("/store-search", gameHandler.SearchStore)
		games.GET("/:app_id", gameHandler.GetGame)
		games.DELETE("/:app_id", gameHandler.DeleteGame)
	}

	// Title catalog
	catalogHandler := handler.NewCatalogHandler(deps.Catalog, deps.Store)
	catalogRoutes := protected.Group("/catalog")
	{
		catalogRoutes.GET("/search", catalogHandler.SearchCatalog)
		catalogRoutes.GET("/status", catalogHandler.GetCatalogStatus)
		catalogRoutes.POST("/backfill", catalogHandler.TriggerBackfill)
	}

	// Prompt library
	promptHandler := handler.NewPromptHandler(deps.Prompts)
	prompts := protected.Group("/prompts")
	{
		prompts.GET("", promptHandler.ListPrompts)
		prompts.GET("/:name", promptHandler.GetPrompt)
		prompts.PUT("/:name", promptHandler.SavePrompt)
		prompts.POST("/:name/activate", promptHandler.ActivatePrompt)
		prompts.DELETE("/:name", promptHandler.DeletePrompt)
	}

	// Provider credentials
	keyHandler := handler.NewKeyHandler(deps.Creds)
	keys := protected.Group("/keys")
	{
		keys.GET("", keyHandler.ListKeys)
		keys.POST("", keyHandler.CreateKey)
		keys.DELETE("/:id", keyHandler.DeleteKey)
	}
	protected.GET("/providers", keyHandler.ListProviders)

	// Runtime settings
	settingsHandler := handler.NewSettingsHandler(deps.Store)
	settings := protected.Group("/settings")
	{
		settings.GET("", settingsHandler.GetAllSettings)
		settings.GET("/:category", settingsHandler.GetSettingsByCategory)
		settings.PUT("/:category", settingsHandler.UpdateSettingsByCategory)
	}
}
