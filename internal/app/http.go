package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/config"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/handler"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/linkstate"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/provider"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/provider/discord"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/provider/google"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity/repo"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/middleware"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/notify"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/session"
)

func setupHTTP(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	repository := repo.NewPostgresRepository(infra.DB)
	notificationStore := notify.NewPostgresStore(infra.DB)
	notifier := notify.NewService(notificationStore, log)

	var publisher identity.EventPublisher
	if infra.Producer != nil {
		publisher = infra.Producer
	}

	linkService := identity.NewLinkService(repository, notifier, publisher, log)
	stateCodec := linkstate.NewCodec(cfg.Link.StateSecret, cfg.Link.StateTTL)

	providers, err := setupProviders(ctx, cfg, log)
	if err != nil {
		infra.Close()
		return nil, nil, err
	}

	identityHandler := handler.NewHandler(
		providers,
		stateCodec,
		linkService,
		sessionStore,
		authMiddleware,
		notificationStore,
		cfg.Link,
		log,
	)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.HandleMethodNotAllowed = true

	identityHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))
	identityHandler.RegisterAPIRoutes(api)

	return router, infra.Close, nil
}

// setupProviders registers every provider whose client registration is
// present. Redirect URIs are derived from the canonical API base and
// nothing else; they must equal the URIs registered with each provider.
func setupProviders(ctx context.Context, cfg *config.Config, log *zap.Logger) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.Providers.Discord.Configured() {
		p, err := discord.New(
			cfg.Providers.Discord.ClientID,
			cfg.Providers.Discord.ClientSecret,
			callbackURL(cfg.Link.APIBaseURL, "discord"),
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	} else {
		log.Warn("discord client not configured")
	}

	if cfg.Providers.Google.Configured() {
		p, err := google.New(
			ctx,
			cfg.Providers.Google.ClientID,
			cfg.Providers.Google.ClientSecret,
			callbackURL(cfg.Link.APIBaseURL, "google"),
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	} else {
		log.Warn("google client not configured")
	}

	return provider.NewRegistry(list...), nil
}

func callbackURL(apiBase, providerName string) string {
	return apiBase + "/" + providerName + "/oauth/callback"
}
