package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpapi "github.com/GoSim-25-26J-441/grant-registry-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
	authmw "github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth/middleware"
	grantshttp "github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/http"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/service"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/metrics"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Registry       *service.GrantRegistry
	Events         grantshttp.EventSource
	Log            logrus.FieldLogger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Checks         []httpapi.Check

	// TokenVerifier switches identity to Firebase ID tokens; nil keeps the
	// X-Wallet-Address header.
	TokenVerifier authmw.TokenVerifier
	// Limiter guards write routes; nil disables rate limiting.
	Limiter *middleware.RateLimiter
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	r.Use(middleware.CORS(dep.AllowedOrigins))
	if dep.Metrics != nil {
		r.Use(dep.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(dep.Metrics.Handler()))
	}

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Checks...)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	if dep.TokenVerifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.TokenVerifier, dep.Log))
	} else {
		api.Use(auth.WalletHeader())
	}

	write := []gin.HandlerFunc{auth.RequireIdentity()}
	if dep.Limiter != nil {
		write = append(write, dep.Limiter.Handler())
	}

	grantsHandler := grantshttp.New(dep.Registry, dep.Events, dep.Log)
	grantsHandler.Register(api.Group("/grants"), write...)

	return r
}
