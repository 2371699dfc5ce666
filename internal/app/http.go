package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"review-service/internal/api"
	"review-service/internal/auth"
	"review-service/internal/auth/credentials"
	"review-service/internal/auth/handler"
	"review-service/internal/auth/resolver"
	"review-service/internal/auth/token"
	"review-service/internal/config"
	"review-service/internal/logger"
	"review-service/internal/middleware"
	"review-service/internal/review"
	"review-service/internal/session"
	"review-service/internal/storage"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	router, err := buildRouter(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}
	return router, infra.Close, nil
}

func buildRouter(ctx context.Context, cfg config.Config, infra *Infra) (*gin.Engine, error) {
	// ----------------------------
	// Dependencies
	// ----------------------------

	users := credentials.NewService(infra.DB, infra.Sessions)
	if err := bootstrapAdmin(ctx, cfg, users); err != nil {
		return nil, err
	}

	signer, err := token.NewSigner(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}

	chain := resolver.Chain{resolver.NewTokenResolver(signer, infra.Sessions, users)}
	if cfg.OIDCIssuer != "" {
		oidcResolver, err := resolver.NewOIDCResolver(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, users)
		if err != nil {
			return nil, err
		}
		chain = append(chain, oidcResolver)
	}

	store := storage.New(infra.DB)
	apiHandler := api.NewHandler(api.Deps{
		Manager:     review.NewManager(store, store, review.WithNotifier(infra.Notifier)),
		Gate:        review.NewGate(store),
		Aggregator:  review.NewAggregator(store),
		Permissions: review.NewPermissions(store, store, infra.Notifier),
		Catalog:     store,
		Users:       users,
	})

	authHandler := handler.NewHandler(users, infra.Sessions, signer, cfg.TokenTTL, session.CookieOptions{
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	authMiddleware := middleware.NewAuthMiddleware(chain)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := infra.DB.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Public + Protected API Routes
	// ----------------------------

	public := router.Group(cfg.APIPrefix)
	authed := public.Group("", middleware.GinRequireAuth(authMiddleware))

	authHandler.RegisterRoutes(public, authed)
	apiHandler.RegisterRoutes(authed)

	for _, route := range router.Routes() {
		logger.Debug("route", map[string]any{"method": route.Method, "path": route.Path})
	}

	return router, nil
}

// bootstrapAdmin creates the configured admin on first start. An existing
// user with that id is left untouched.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *credentials.Service) error {
	if cfg.BootstrapAdminID == "" {
		return nil
	}
	err := users.CreateWithSecret(ctx, cfg.BootstrapAdminID, auth.RoleAdmin, cfg.BootstrapAdminSecret)
	if errors.Is(err, credentials.ErrAlreadyExists) {
		return nil
	}
	return err
}
