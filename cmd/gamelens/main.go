// Package main is the entry point for the GameLens application.
// GameLens harvests game reviews from the storefront and runs them through
// LLM batch analysis.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/consts"
	"github.com/gamelens/gamelens/internal/analysis"
	"github.com/gamelens/gamelens/internal/api/router"
	"github.com/gamelens/gamelens/internal/catalog"
	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/database"
	"github.com/gamelens/gamelens/internal/prompt"
	"github.com/gamelens/gamelens/internal/scraper"
	"github.com/gamelens/gamelens/internal/server"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/internal/vault"
	"github.com/gamelens/gamelens/pkg/logger"
	"github.com/gamelens/gamelens/pkg/telemetry"

	// Import provider implementations to register them
	_ "github.com/gamelens/gamelens/internal/provider/mock"
	_ "github.com/gamelens/gamelens/internal/provider/openai"
)

// Build information - set via ldflags during build
// These variables are linked to consts package for global access
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// defaultConfigPath is used when --config is not given
const defaultConfigPath = "config/gamelens.yaml"

// configPath holds the path to the configuration file
var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gamelens",
	Short: "GameLens - Game Review Harvesting and LLM Analysis Service",
	Long: `GameLens harvests player reviews for tracked games from the storefront,
stores them locally, and runs them through LLM batch analysis jobs.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GameLens server",
	Long: `Start the HTTP server that drives review ingestion, the title catalog,
and analysis jobs. Without --config, built-in defaults are used when
` + defaultConfigPath + ` does not exist.`,
	Run: runServe,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("GameLens %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	// Disable auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: "+defaultConfigPath+")")

	// Add commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Serve command flags
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe starts the GameLens server
func runServe(cmd *cobra.Command, args []string) {
	// Record server start time
	consts.SetStartedAt(time.Now())

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting GameLens",
		zap.String("version", Version),
	)

	// Initialize telemetry (OpenTelemetry traces and metrics)
	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	// Initialize database
	if err := database.Init(); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	dataStore := store.NewStore(database.Get())

	// Credential vault
	v, err := vault.New(cfg.Vault.KeyFile)
	if err != nil {
		logger.Fatal("Failed to initialize credential vault", zap.Error(err))
	}
	creds := vault.NewCredentials(v, dataStore)

	// Upstream store client and ingestion engine
	steamClient := steam.NewClient(&cfg.Steam)
	engine := scraper.NewEngine(dataStore, steamClient)

	// Mirror ingestion log entries into the live progress feed
	logger.SetScrapeLogSink(engine.Progress())

	// Prompt library and analysis orchestrator
	prompts := prompt.NewStore(cfg.Analysis.PromptsDir, dataStore.Settings())
	orch := analysis.NewOrchestrator(dataStore, prompts, creds, &cfg.Analysis)

	// Title catalog with optional scheduled refresh
	catalogSvc := catalog.NewService(dataStore, steamClient, &cfg.Catalog)
	if err := catalogSvc.StartScheduler(); err != nil {
		logger.Fatal("Failed to start catalog scheduler", zap.Error(err))
	}
	defer catalogSvc.StopScheduler()

	// Create and configure server
	srv := server.New(cfg, router.Deps{
		Store:   dataStore,
		Engine:  engine,
		Orch:    orch,
		Catalog: catalogSvc,
		Prompts: prompts,
		Creds:   creds,
		Steam:   steamClient,
	})
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("GameLens server is running",
		zap.String("address", cfg.Server.Address()),
	)

	// Log access URLs for user convenience
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d", port))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d", lanIP, port))
	}

	// Wait for shutdown
	srv.WaitForShutdown()

	logger.Info("GameLens stopped")
}

// loadConfig loads the YAML configuration. A missing file is only an error
// when a path was given explicitly; otherwise defaults apply.
func loadConfig() (*config.Config, error) {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
