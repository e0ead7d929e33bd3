package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/handler"
	"github.com/atempo-hq/workcal-api/internal/middleware"
	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/internal/repository"
	"github.com/atempo-hq/workcal-api/internal/service"
	"github.com/atempo-hq/workcal-api/pkg/config"
	"github.com/atempo-hq/workcal-api/pkg/logger"
	corsmiddleware "github.com/atempo-hq/workcal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/atempo-hq/workcal-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router needs to register routes.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Metrics  *service.MetricsService
	Users    *repository.UserRepository
	Events   *handler.EventHandler
	Projects *handler.ProjectHandler
	Payroll  *handler.PayrollHandler
	Accounts *handler.UserHandler
	Sessions *handler.AuthHandler
	Staffing *handler.AssignmentHandler
}

// New builds the gin engine with all middleware and routes wired.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Sessions.Login)
		auth.POST("/refresh", deps.Sessions.Refresh)
		auth.POST("/logout", middleware.JWT(deps.Auth), deps.Sessions.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth))

	users := authed.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), deps.Accounts.List)
		users.POST("", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, models.AuditActionCreate, "users"), deps.Accounts.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole), deps.Accounts.Get)
		users.PATCH("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole),
			middleware.Audit(deps.Users, models.AuditActionUpdate, "users"), deps.Accounts.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, models.AuditActionDelete, "users"), deps.Accounts.Delete)

		vouchers := middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole)
		users.GET("/:id/meal-vouchers/:month", vouchers, deps.Payroll.MealVouchers)
		users.GET("/:id/meal-vouchers/:month/export", vouchers, deps.Payroll.Export)
		users.GET("/:id/meal-vouchers/:month/download", vouchers, deps.Payroll.Download)
	}

	events := authed.Group("/events")
	{
		events.GET("", deps.Events.List)
		events.GET("/:id", deps.Events.Get)
		events.POST("", middleware.Audit(deps.Users, models.AuditActionCreate, "events"), deps.Events.Create)
		events.POST("/:id/validate", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionUpdate, "events"), deps.Events.Validate)
		events.POST("/:id/decline", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionUpdate, "events"), deps.Events.Decline)
		events.DELETE("/:id", middleware.Audit(deps.Users, models.AuditActionDelete, "events"), deps.Events.Cancel)
	}

	assignments := authed.Group("/project-users")
	{
		assignments.GET("", deps.Staffing.List)
		assignments.GET("/:id", deps.Staffing.Get)
		assignments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionCreate, "project_users"), deps.Staffing.Create)
		assignments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionDelete, "project_users"), deps.Staffing.Remove)
	}

	projects := authed.Group("/projects")
	{
		projects.GET("", deps.Projects.List)
		projects.GET("/:id", deps.Projects.Get)
		projects.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionCreate, "projects"), deps.Projects.Create)
		projects.PATCH("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleProjectManager),
			middleware.Audit(deps.Users, models.AuditActionUpdate, "projects"), deps.Projects.Update)
		projects.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Users, models.AuditActionDelete, "projects"), deps.Projects.Archive)
	}

	return r
}
