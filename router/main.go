package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/database"
	"github.com/pathlearn/lms-api/handlers"
	admin_handlers "github.com/pathlearn/lms-api/handlers/admin"
	auth_handlers "github.com/pathlearn/lms-api/handlers/auth"
	leaderboard_handlers "github.com/pathlearn/lms-api/handlers/leaderboard"
	module_handlers "github.com/pathlearn/lms-api/handlers/module"
	path_handlers "github.com/pathlearn/lms-api/handlers/path"
	progress_handlers "github.com/pathlearn/lms-api/handlers/progress"
	"github.com/pathlearn/lms-api/services"
	"github.com/pathlearn/lms-api/utils"
	"github.com/pathlearn/lms-api/utils/auth"
	"github.com/pathlearn/lms-api/utils/cache"
	"github.com/pathlearn/lms-api/utils/middleware"
	"gorm.io/gorm"
)

// Services bundles the service layer built during route setup so the caller
// can hand the same instances to background jobs.
type Services struct {
	Paths       *services.PathService
	Progress    *services.ProgressService
	Leaderboard *services.LeaderboardService
}

func SetupRoutes(app *fiber.App, store database.Storage) *Services {
	// Get JWT secret from environment
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "pathlearn-api"
	}

	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs brute force protection and the leaderboard cache
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and leaderboard caching will be disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Service layer
	pathService := services.NewPathService(db)
	leaderboardService := services.NewLeaderboardService(db, redisCache)
	progressService := services.NewProgressService(db, pathService, leaderboardService)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	moduleHandler := module_handlers.NewModuleHandler(db)
	pathHandler := path_handlers.NewPathHandler(db, pathService)
	progressHandler := progress_handlers.NewProgressHandler(db, progressService)
	leaderboardHandler := leaderboard_handlers.NewLeaderboardHandler(leaderboardService)
	userAdminHandler := admin_handlers.NewUserAdminHandler(db, progressService, pathService)
	auditHandler := admin_handlers.NewAuditHandler(db)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile route (protected)
	api.Get("/profile", authMiddleware.Required(), authHandler.Profile)

	// Module catalog (learners browse, admins manage below)
	modules := api.Group("/modules", authMiddleware.Required())
	modules.Get("/", moduleHandler.ListModules)
	modules.Get("/:id", moduleHandler.GetModule)

	// Assigned learning paths
	api.Get("/paths", authMiddleware.Required(), pathHandler.MyPaths)

	// Progress recording
	progressGroup := api.Group("/progress", authMiddleware.Required())
	progressGroup.Get("/summary", progressHandler.Summary)
	progressGroup.Post("/modules/:id/complete", progressHandler.CompleteModule)
	progressGroup.Post("/modules/:id/chapters/:chapterId/complete", progressHandler.CompleteChapter)

	// Leaderboard
	api.Get("/leaderboard", authMiddleware.Required(), leaderboardHandler.Top)

	// Admin routes
	admin := api.Group("/admin", authMiddleware.Required(), middleware.RequireAdmin())

	adminUsers := admin.Group("/users")
	adminUsers.Get("/", userAdminHandler.ListUsers)
	adminUsers.Get("/:id", userAdminHandler.GetUser)
	adminUsers.Post("/:id/approve", middleware.AdminAuditLog(db, "approve", "user"), userAdminHandler.ApproveUser)
	adminUsers.Post("/:id/reject", middleware.AdminAuditLog(db, "reject", "user"), userAdminHandler.RejectUser)
	adminUsers.Post("/:id/reset-progress", middleware.AdminAuditLog(db, "reset_progress", "user"), userAdminHandler.ResetProgress)
	adminUsers.Post("/:id/normalize-paths", middleware.AdminAuditLog(db, "normalize_paths", "user"), userAdminHandler.NormalizePaths)

	adminModules := admin.Group("/modules")
	adminModules.Post("/", middleware.AdminAuditLog(db, "create", "module"), moduleHandler.CreateModule)
	adminModules.Put("/:id", middleware.AdminAuditLog(db, "update", "module"), moduleHandler.UpdateModule)
	adminModules.Delete("/:id", middleware.AdminAuditLog(db, "delete", "module"), moduleHandler.DeleteModule)
	adminModules.Post("/:id/chapters", middleware.AdminAuditLog(db, "create", "chapter"), moduleHandler.CreateChapter)
	adminModules.Delete("/:id/chapters/:chapterId", middleware.AdminAuditLog(db, "delete", "chapter"), moduleHandler.DeleteChapter)

	adminPaths := admin.Group("/paths")
	adminPaths.Get("/", pathHandler.ListPaths)
	adminPaths.Get("/:id", pathHandler.GetPath)
	adminPaths.Post("/", middleware.AdminAuditLog(db, "create", "learning_path"), pathHandler.CreatePath)
	adminPaths.Put("/:id", middleware.AdminAuditLog(db, "update", "learning_path"), pathHandler.UpdatePath)
	adminPaths.Delete("/:id", middleware.AdminAuditLog(db, "delete", "learning_path"), pathHandler.DeletePath)
	adminPaths.Post("/:id/modules", middleware.AdminAuditLog(db, "add_module", "learning_path"), pathHandler.AddModule)
	adminPaths.Delete("/:id/modules/:moduleId", middleware.AdminAuditLog(db, "remove_module", "learning_path"), pathHandler.RemoveModule)
	adminPaths.Post("/:id/assign", middleware.AdminAuditLog(db, "assign", "learning_path"), pathHandler.AssignPath)

	admin.Get("/audit-logs", auditHandler.ListAuditLogs)

	return &Services{
		Paths:       pathService,
		Progress:    progressService,
		Leaderboard: leaderboardService,
	}
}
