package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/inkwell/internal/interface/http"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
)

// AuthModule serves /auth. Register and login are limited per IP and path;
// me and refresh require a resolved identity.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Resolver *middleware.IdentityResolver
	Limit    middleware.LimiterFactory
}

func NewAuthModule(h *handlers.AuthHandler, resolver *middleware.IdentityResolver, limit middleware.LimiterFactory) *AuthModule {
	if limit == nil {
		limit = middleware.NoLimit
	}
	return &AuthModule{Handler: h, Resolver: resolver, Limit: limit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Limit(5, time.Minute, middleware.KeyByIPAndPath()), m.Handler.Register)
	rg.POST("/auth/login", m.Limit(10, time.Minute, middleware.KeyByIPAndPath()), m.Handler.Login)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Resolver))
	auth.Use(m.Limit(60, time.Minute, middleware.KeyByUserID("auth")))
	{
		auth.GET("/me", m.Handler.Me)
		auth.POST("/refresh", m.Handler.Refresh)
	}
}
