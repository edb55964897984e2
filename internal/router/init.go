package router

import (
	"github.com/oksasatya/inkwell/internal/application"
	"github.com/oksasatya/inkwell/internal/container"
	repo "github.com/oksasatya/inkwell/internal/domain/repository"
	esinfra "github.com/oksasatya/inkwell/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/inkwell/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/inkwell/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/inkwell/internal/interface/http"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
	"github.com/oksasatya/inkwell/internal/router/modules"
)

// Deps is everything the feature modules are built from.
type Deps struct {
	Auth     *application.AuthService
	PostSvc  *application.PostService
	Resolver *middleware.IdentityResolver
}

func buildRepositories() (repo.UserRepository, repo.PostRepository) {
	if container.GetConfig().StoreDriver == "memory" {
		store := memory.NewStore(nil)
		return store.Users(), store.Posts()
	}
	pool := container.GetPGPool()
	return pginfra.NewUserRepository(pool), pginfra.NewPostRepository(pool)
}

// buildProjection picks where post changes go. The event queue wins over
// inline indexing; both are optional.
func buildProjection() (application.PostSearcher, application.EventPublisher) {
	cfg := container.GetConfig()
	var search application.PostSearcher
	if cfg.SearchEnabled && container.GetES() != nil {
		search = esinfra.NewPostIndex(container.GetES(), cfg.ESPostsIndex)
	}
	var events application.EventPublisher
	if cfg.EventsEnabled && container.GetRabbitPub() != nil {
		events = container.GetRabbitPub()
	}
	return search, events
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	users, posts := buildRepositories()
	search, events := buildProjection()

	return Deps{
		Auth:     application.NewAuthService(users, container.GetJWT(), container.GetHasher(), logger),
		PostSvc:  application.NewPostService(posts, container.Cache(), cfg.PostCacheTTL, search, events, logger),
		Resolver: middleware.NewIdentityResolver(container.GetJWT(), users, logger),
	}
}

// buildLimiter prefers the shared redis limiter and falls back to
// per-process buckets when no redis is configured.
func buildLimiter() middleware.LimiterFactory {
	cfg := container.GetConfig()
	if !cfg.RateLimitEnabled {
		return middleware.NoLimit
	}
	var allow middleware.AllowFunc
	if cfg.Env == "development" {
		allow = middleware.AllowPrivateIP()
	}
	if rdb := container.Cache(); rdb != nil {
		return middleware.RedisLimiter(rdb, allow)
	}
	return middleware.LocalLimiter(allow)
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	deps := buildDeps()
	limit := buildLimiter()

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(deps.Auth, logger), deps.Resolver, limit))
	r.Add(modules.NewPostModule(handlers.NewPostHandler(deps.PostSvc, logger), deps.Resolver, limit))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limit))
	}
}
