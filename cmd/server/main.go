// cmd/server/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pharmaguard-back/internal/analysis"
	"pharmaguard-back/internal/auth"
	"pharmaguard-back/internal/config"
	"pharmaguard-back/internal/database"
	"pharmaguard-back/internal/handlers"
	"pharmaguard-back/internal/mailer"
	"pharmaguard-back/internal/middleware"
	"pharmaguard-back/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Initialize database
	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()

	// Optional VCF archive
	archive, err := storage.NewArchive(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("Failed to initialize MinIO archive:", err)
	}
	if archive == nil {
		logger.Info("MinIO not configured, VCF archiving disabled")
	}

	// Optional SMTP mailer
	smtpMailer, err := mailer.New(cfg.SMTP)
	if err != nil {
		log.Fatal("Failed to initialize mailer:", err)
	}
	if smtpMailer == nil {
		logger.Info("SMTP not configured, reset emails disabled")
	}

	analysisClient := analysis.NewClient(cfg.AnalysisServiceURL)

	// Google OIDC
	oauthCfg := handlers.NewGoogleOAuthConfig(cfg.Google)
	var verifier handlers.IDTokenVerifier
	if cfg.Google.ClientID != "" {
		v, err := auth.NewGoogleVerifier(ctx, cfg.Google.JWKSURL, cfg.Google.ClientID)
		if err != nil {
			log.Fatal("Failed to initialize Google token verifier:", err)
		}
		verifier = v
	} else {
		logger.Info("Google OAuth not configured")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL))

	r.GET("/health", handlers.Health(analysisClient))

	secret := []byte(cfg.JWTSecret)

	// Public user routes
	users := r.Group("/api/v1/users")
	{
		users.POST("/register", handlers.Register(db))
		users.POST("/login", handlers.Login(db, cfg))
		users.GET("/verify-email/:token", handlers.VerifyEmail(cfg))
		users.POST("/forgot-password", handlers.ForgotPassword(db, cfg, smtpMailer, logger))
		users.POST("/verify-reset-otp", handlers.VerifyResetOTP(db))
		users.POST("/reset-password", handlers.ResetPassword(db))
		users.GET("/google/login", handlers.GoogleLogin(cfg, oauthCfg))
		users.GET("/google/callback", handlers.GoogleCallback(db, cfg, oauthCfg, verifier, logger))
	}

	// Protected user routes
	usersAuth := r.Group("/api/v1/users")
	usersAuth.Use(middleware.AuthMiddleware(secret))
	{
		usersAuth.GET("/get-profile", handlers.GetProfile(db))
		usersAuth.PUT("/update-profile", handlers.UpdateProfile(db))
		usersAuth.POST("/logout", handlers.Logout(cfg))
	}

	// Record routes, all behind a session
	records := r.Group("/api/v1")
	records.Use(middleware.AuthMiddleware(secret))
	{
		records.POST("/upload", handlers.UploadVCF(db, archive, logger))
		records.POST("/analyze", handlers.UploadAndAnalyze(db, archive, analysisClient, logger))
		records.GET("/records", handlers.GetAllRecords(db))
		// gin cannot mix a static segment with a wildcard at the same
		// position, so fetch-by-record-id lives under /record/:id.
		records.GET("/record/:id", handlers.GetRecordByID(db))
		records.GET("/records/:id", handlers.GetRecordByPatientID(db))
		records.DELETE("/records/:id", handlers.DeleteRecord(db, archive, logger))
		records.GET("/records/:id/download", handlers.DownloadVCF(db, archive))
		records.GET("/records/:id/preview", handlers.PreviewVCF(db, archive))
		records.GET("/records/:id/vcf-stats", handlers.GetVCFStats(db, archive))
		records.GET("/records/:id/status", handlers.GetProcessingStatus(db))
		records.POST("/records/:id/analyze", handlers.TriggerAnalysis(db, analysisClient, logger))
		records.PUT("/records/:id/results", handlers.UpdateResults(db))
	}

	logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("env", cfg.Environment))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
