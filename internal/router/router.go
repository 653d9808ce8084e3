package router

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"storekeep/internal/apierror"
	"storekeep/internal/backup"
	"storekeep/internal/config"
	"storekeep/internal/handler"
	"storekeep/internal/lifecycle"
	"storekeep/internal/middleware"
	"storekeep/internal/monitor"
	"storekeep/internal/repository"
	"storekeep/internal/service"
	"storekeep/internal/session"
	"storekeep/internal/storage"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces built by the composition root.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client // nil when Redis is not configured
	Sessions *session.Manager
	Files    storage.FileStore
	Backups  backup.Tool
	Jobs     service.JobQueue
	Monitor  *monitor.Monitor
	Hasher   service.PasswordHasher
}

// Services groups the application services so the composition root can reach
// them outside HTTP (bootstrap, seeding).
type Services struct {
	Accounts service.AccountService
	Catalog  service.CatalogService
	Admin    service.AdminService
	Reports  service.ReportService
	Backups  service.BackupService
}

// NewServices wires repositories, the lifecycle engine and every service.
// Dependency graph: Service ← Repository ← DB
func NewServices(d Deps) *Services {
	users := repository.NewUserRepository(d.DB)
	products := repository.NewProductRepository(d.DB)
	reports := repository.NewReportRepository(d.DB)

	engine := lifecycle.NewEngine(users, products, d.Files)

	return &Services{
		Accounts: service.NewAccountService(users, reports, d.Sessions, d.Hasher),
		Catalog:  service.NewCatalogService(products, d.Files, engine),
		Admin:    service.NewAdminService(users, products, engine),
		Reports:  service.NewReportService(reports, d.Monitor, d.Backups),
		Backups:  service.NewBackupService(d.Backups, d.Jobs),
	}
}

// New returns a configured Gin engine. ctx bounds background helpers such as
// the rate limiter purge.
func New(ctx context.Context, cfg *config.Config, d Deps, svcs *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(cfg.MaxUploadSizeMB) << 20

	apiLimiter := middleware.NewRateLimiter("api", cfg.APIRateLimit, time.Minute, "too many requests, try again shortly")
	loginLimiter := middleware.NewLoginRateLimiter(cfg.LoginRateLimit)
	apiLimiter.StartPurge(ctx)
	loginLimiter.StartPurge(ctx)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(d.Monitor))
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())
	r.Use(middleware.Authenticate(svcs.Accounts, cfg.SessionCookie))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Accounts, handler.SessionCookie{
		Name:   cfg.SessionCookie,
		Secure: cfg.IsProduction(),
	})
	productsH := handler.NewProductsHandler(svcs.Catalog, int64(cfg.MaxUploadSizeMB)<<20)
	adminH := handler.NewAdminHandler(svcs.Admin)
	reportsH := handler.NewReportsHandler(svcs.Reports)
	backupsH := handler.NewBackupsHandler(svcs.Backups)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis))
	r.GET("/metrics", gin.WrapH(d.Monitor.Handler()))
	r.Static("/images", filepath.Join(cfg.PublicDir, "images"))
	r.GET("/v1/catalog", productsH.Catalog)

	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", loginLimiter.Middleware(), authH.Register)
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/logout", authH.Logout)
		auth.GET("/me", middleware.RequireAuth(), authH.Profile)
		auth.PUT("/me", middleware.RequireAuth(), authH.UpdateProfile)
	}

	v1 := r.Group("/v1", middleware.RequireAuth())
	{
		v1.GET("/products", productsH.List)
		v1.POST("/products", productsH.Create)
		v1.GET("/products/:id", productsH.Get)
		v1.PUT("/products/:id", productsH.Update)
		v1.DELETE("/products/:id", productsH.Delete)
	}

	// Staff only. Finer rules (SuperAdmin-only trash and backups, admin-on-admin)
	// are enforced by the policy inside each service.
	admin := v1.Group("/admin", middleware.RequireStaff())
	{
		admin.GET("/dashboard", reportsH.Dashboard)
		admin.GET("/charts", reportsH.Charts)
		admin.GET("/server-stats", reportsH.ServerStats)
		admin.GET("/report.pdf", reportsH.ExportPDF)

		admin.GET("/users", adminH.ListUsers)
		admin.PUT("/users/:id", adminH.UpdateUser)
		admin.DELETE("/users/:id", adminH.TrashUser)
		admin.GET("/products", adminH.ListProducts)
		admin.DELETE("/products/:id", adminH.TrashProduct)

		trash := admin.Group("/trash")
		{
			trash.GET("", adminH.ListTrash)
			trash.DELETE("", adminH.ClearTrash)
			trash.POST("/users/:id/restore", adminH.RestoreUser)
			trash.DELETE("/users/:id", adminH.PurgeUser)
			trash.POST("/products/:id/restore", adminH.RestoreProduct)
			trash.DELETE("/products/:id", adminH.PurgeProduct)
		}

		backups := admin.Group("/backups")
		{
			backups.GET("", backupsH.List)
			backups.POST("", backupsH.Create)
			backups.POST("/restore", backupsH.Restore)
			backups.GET("/failed", backupsH.FailedJobs)
			backups.GET("/jobs/:id", backupsH.Job)
			backups.DELETE("/:filename", backupsH.Delete)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierror.New("route not found"))
	})

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
