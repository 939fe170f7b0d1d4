package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/procura/internal/audit"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/auth"
	authdomain "github.com/smallbiznis/procura/internal/auth/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/comparison"
	comparisondomain "github.com/smallbiznis/procura/internal/comparison/domain"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/observability"
	obslogger "github.com/smallbiznis/procura/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/procura/internal/observability/metrics"
	obstracing "github.com/smallbiznis/procura/internal/observability/tracing"
	"github.com/smallbiznis/procura/internal/organization"
	organizationdomain "github.com/smallbiznis/procura/internal/organization/domain"
	"github.com/smallbiznis/procura/internal/price"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	"github.com/smallbiznis/procura/internal/pricerequest"
	pricerequestdomain "github.com/smallbiznis/procura/internal/pricerequest/domain"
	"github.com/smallbiznis/procura/internal/product"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/internal/providers/pdf"
	"github.com/smallbiznis/procura/internal/ratelimit"
	"github.com/smallbiznis/procura/internal/reference"
	referencedomain "github.com/smallbiznis/procura/internal/reference/domain"
	"github.com/smallbiznis/procura/internal/supplier"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/user"
	userdomain "github.com/smallbiznis/procura/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	authorization.Module,
	auth.Module,
	user.Module,
	organization.Module,
	reference.Module,
	product.Module,
	supplier.Module,
	price.Module,
	pricerequest.Module,
	pdf.Module,
	comparison.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", httpMetrics.Handler())

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	userSvc         userdomain.Service
	organizationSvc organizationdomain.Service
	referenceSvc    referencedomain.Service
	productSvc      productdomain.Service
	supplierSvc     supplierdomain.Service
	tokenSvc        supplierdomain.TokenService
	priceSvc        pricedomain.Service
	priceRequestSvc pricerequestdomain.Service
	comparisonSvc   comparisondomain.Service
	tokenLimiter    ratelimit.ClientLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	UserSvc         userdomain.Service
	OrganizationSvc organizationdomain.Service
	ReferenceSvc    referencedomain.Service
	ProductSvc      productdomain.Service
	SupplierSvc     supplierdomain.Service
	TokenSvc        supplierdomain.TokenService
	PriceSvc        pricedomain.Service
	PriceRequestSvc pricerequestdomain.Service
	ComparisonSvc   comparisondomain.Service
	TokenLimiter    ratelimit.ClientLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		userSvc:         p.UserSvc,
		organizationSvc: p.OrganizationSvc,
		referenceSvc:    p.ReferenceSvc,
		productSvc:      p.ProductSvc,
		supplierSvc:     p.SupplierSvc,
		tokenSvc:        p.TokenSvc,
		priceSvc:        p.PriceSvc,
		priceRequestSvc: p.PriceRequestSvc,
		comparisonSvc:   p.ComparisonSvc,
		tokenLimiter:    p.TokenLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")
	auth.POST("/login", s.Login)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/suppliers/:id/token", s.SupplierTokenRateLimit(), s.GetSupplierToken)
	s.engine.POST("/supplier-portal/quotes", s.SupplierTokenRequired(), s.SubmitSupplierQuote)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("", s.AuthRequired())

	// -------- Organizations --------
	api.GET("/organizations", s.ListOrganizations)
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations/:id", s.GetOrganizationByID)
	api.PATCH("/organizations/:id", s.UpdateOrganization)
	api.DELETE("/organizations/:id", s.DeleteOrganization)

	// -------- Cities --------
	api.GET("/cities", s.ListCities)
	api.POST("/cities", s.CreateCity)
	api.GET("/cities/:id", s.GetCityByID)
	api.PATCH("/cities/:id", s.UpdateCity)
	api.DELETE("/cities/:id", s.DeleteCity)

	// -------- Users --------
	api.GET("/users/me", s.Me)
	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.GetUserByID)
	api.PATCH("/users/:id", s.UpdateUser)

	api.GET("/purchaser-profiles", s.ListPurchaserProfiles)
	api.POST("/purchaser-profiles", s.CreatePurchaserProfile)
	api.GET("/purchaser-profiles/:id", s.GetPurchaserProfileByID)
	api.PUT("/purchaser-profiles/:id", s.ReplacePurchaserProfile)

	// -------- Items --------
	s.registerItemRoutes(api.Group("/products"), productdomain.KindProduct)
	s.registerItemRoutes(api.Group("/alcohol-products"), productdomain.KindAlcohol)

	// -------- Suppliers --------
	api.GET("/suppliers", s.ListSuppliers)
	api.POST("/suppliers", s.CreateSupplier)
	api.GET("/suppliers/:id", s.GetSupplierByID)
	api.PATCH("/suppliers/:id", s.UpdateSupplier)
	api.DELETE("/suppliers/:id", s.DeleteSupplier)
	api.POST("/suppliers/:id/token/regenerate", s.RegenerateSupplierToken)

	// -------- Prices --------
	api.GET("/prices", s.ListPrices)
	api.POST("/prices", s.CreatePrice)
	api.GET("/prices/:kind/:id", s.GetPriceByID)
	api.PATCH("/prices/:kind/:id", s.UpdatePrice)

	// -------- Price requests --------
	api.GET("/price-requests", s.ListPriceRequests)
	api.POST("/price-requests", s.CreatePriceRequest)
	api.POST("/price-requests/bulk-cancel", s.BulkCancelPriceRequests)
	api.GET("/price-requests/:id", s.GetPriceRequestByID)
	api.PUT("/price-requests/:id", s.UpdatePriceRequest)
	api.PATCH("/price-requests/:id", s.UpdatePriceRequest)
	api.POST("/price-requests/:id/cancel", s.CancelPriceRequest)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerItemRoutes(group *gin.RouterGroup, kind productdomain.Kind) {
	group.GET("", s.ListItems(kind))
	group.POST("", s.CreateItem(kind))
	group.GET("/with-prices", s.ListItemsWithPrices(kind))
	group.GET("/with-prices/export.pdf", s.ExportItemsWithPrices(kind))
	group.GET("/:id", s.GetItemByID(kind))
	group.PATCH("/:id", s.UpdateItem(kind))
	group.DELETE("/:id", s.DeleteItem(kind))
	group.GET("/:id/prices", s.ListItemPrices(kind))
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
