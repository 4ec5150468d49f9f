package router

import (
	"time"

	"gamestore/internal/config"
	"gamestore/internal/handler"
	"gamestore/internal/infra"
	"gamestore/internal/middleware"
	"gamestore/internal/repository"
	"gamestore/internal/service"
	"gamestore/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	cachedProductRepo := repository.NewCachedProductRepository(productRepo, rdb, cfg.ProductCacheTTL)
	branchRepo := repository.NewBranchRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	var locker service.AllocationLocker
	if cfg.StrictCentralAllocation {
		locker = infra.NewAllocationLocker(rdb)
	}
	var alerter service.StockAlerter
	if dispatcher != nil {
		alerter = dispatcher
	}

	policy := service.NewDistributionPolicy(branchRepo, inventoryRepo)
	catalogSvc := service.NewCatalogService(cachedProductRepo, branchRepo)
	inventorySvc := service.NewInventoryService(inventoryRepo, movementRepo, cachedProductRepo, branchRepo, saleRepo, policy, locker, alerter)
	saleSvc := service.NewSaleService(saleRepo, inventoryRepo, movementRepo, productRepo, branchRepo, alerter)

	// ── Handlers ─────────────────────────────────────────────────────────────
	Register(r, cfg.JWTSecret,
		handler.NewCatalogHandler(catalogSvc),
		handler.NewInventoryHandler(inventorySvc),
		handler.NewSalesHandler(saleSvc),
	)

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Register mounts the authenticated /v1 routes with their role guards.
func Register(r *gin.Engine, jwtSecret string, catalogH *handler.CatalogHandler, inventoryH *handler.InventoryHandler, salesH *handler.SalesHandler) {
	const (
		cashier = middleware.RoleCashier
		manager = middleware.RoleManager
		admin   = middleware.RoleAdmin
	)
	anyRole := middleware.RequireRole(cashier, manager, admin)
	managers := middleware.RequireRole(manager, admin)
	admins := middleware.RequireRole(admin)

	v1 := r.Group("/v1", middleware.JWTAuth(jwtSecret))
	{
		// Catalog: everyone reads, admins write
		v1.GET("/products", anyRole, catalogH.ListProducts)
		v1.GET("/products/:id", anyRole, catalogH.GetProduct)
		prods := v1.Group("/products", admins)
		{
			prods.POST("", catalogH.CreateProduct)
			prods.PUT("/:id", catalogH.UpdateProduct)
			prods.DELETE("/:id", catalogH.ArchiveProduct)
		}

		v1.GET("/branches", anyRole, catalogH.ListBranches)
		v1.GET("/branches/:id", anyRole, catalogH.GetBranch)
		branches := v1.Group("/branches", admins)
		{
			branches.POST("", catalogH.CreateBranch)
			branches.PUT("/:id", catalogH.UpdateBranch)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("", anyRole, inventoryH.List)
			inv.GET("/lookup", anyRole, inventoryH.Lookup)
			inv.GET("/alerts", anyRole, inventoryH.Alerts)
			inv.GET("/:id", anyRole, inventoryH.Get)
			inv.GET("/:id/movements", managers, inventoryH.Movements)
			inv.POST("", managers, inventoryH.Create)
			inv.PUT("/:id", managers, inventoryH.Adjust)
			inv.DELETE("/:id", admins, inventoryH.Delete)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", anyRole, salesH.Create)
			sales.GET("", anyRole, salesH.List)
			sales.GET("/:id", anyRole, salesH.Get)
			sales.POST("/:id/complete", anyRole, salesH.Complete)
			sales.POST("/:id/cancel", managers, salesH.Cancel)
			sales.POST("/:id/refund", managers, salesH.Refund)
		}
	}
}
