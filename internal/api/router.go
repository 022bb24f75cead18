package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/internal/app"
	iauth "github.com/charlesng35/tenancy/internal/auth"
	"github.com/charlesng35/tenancy/internal/handlers"
	"github.com/charlesng35/tenancy/internal/middleware"
	"github.com/charlesng35/tenancy/internal/permissions"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// organization API. svc may be nil, in which case services are built over db.
// A nil rateStore falls back to an in-memory store.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc *Services, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	if svc == nil {
		built, err := NewServices(db)
		if err != nil {
			return nil, err
		}
		svc = built
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	r.GET("/health", handlers.Health(db))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt, svc.Users))
	if cfg.RateLimit.Enabled && cfg.RateLimit.Requests > 0 {
		if rateStore == nil {
			rateStore = middleware.NewMemoryRateStore()
		}
		api.Use(middleware.RateLimit(rateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	permHandler := handlers.NewPermissionHandler()
	api.GET("/permissions", permHandler.Catalogue)

	orgHandler, err := handlers.NewOrganizationHandler(svc.Organizations, svc.Gate)
	if err != nil {
		return nil, err
	}
	memberHandler, err := handlers.NewMemberHandler(svc.Memberships)
	if err != nil {
		return nil, err
	}

	registerOrganizationRoutes(api, svc, orgHandler, memberHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerOrganizationRoutes(api *gin.RouterGroup, svc *Services, orgHandler *handlers.OrganizationHandler, memberHandler *handlers.MemberHandler) {
	gate := svc.Gate

	orgs := api.Group("/orgs")
	{
		orgs.GET("", orgHandler.List)
		orgs.POST("", orgHandler.Create)
	}

	org := orgs.Group("/:" + middleware.OrgIDParam)
	{
		org.GET("", middleware.RequireOrgPermission(gate, permissions.OrgView), orgHandler.Get)
		org.PATCH("", middleware.RequireOrgPermission(gate, permissions.OrgUpdate), orgHandler.Update)
		org.GET("/me", orgHandler.Me)
		org.GET("/audit", middleware.RequireOrgPermission(gate, permissions.OrgUpdate), orgHandler.AuditTrail)
	}

	members := org.Group("/members")
	{
		members.GET("", middleware.RequireOrgPermission(gate, permissions.MemberView), memberHandler.List)
		members.POST("", middleware.RequireOrgPermission(gate, permissions.MemberInvite), memberHandler.Add)
		members.PATCH("/:userID", middleware.RequireOrgPermission(gate, permissions.MemberUpdateRole), memberHandler.UpdateRole)
		members.DELETE("/:userID", middleware.RequireOrgPermission(gate, permissions.MemberRemove), memberHandler.Remove)
	}
}
