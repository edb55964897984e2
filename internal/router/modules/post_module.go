package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/inkwell/internal/interface/http"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
)

// PostModule serves /posts and /me/posts.
// Public: GET /posts, GET /posts/search, GET /posts/:id (identity optional)
// Protected: POST /posts, PUT /posts/:id, DELETE /posts/:id, GET /me/posts
type PostModule struct {
	Handler  *handlers.PostHandler
	Resolver *middleware.IdentityResolver
	Limit    middleware.LimiterFactory
}

func NewPostModule(h *handlers.PostHandler, resolver *middleware.IdentityResolver, limit middleware.LimiterFactory) *PostModule {
	if limit == nil {
		limit = middleware.NoLimit
	}
	return &PostModule{Handler: h, Resolver: resolver, Limit: limit}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	public := rg.Group("/posts")
	public.Use(middleware.OptionalAuth(m.Resolver))
	public.Use(m.Limit(300, time.Minute, middleware.KeyByUserID("posts:read")))
	{
		public.GET("", m.Handler.List)
		public.GET("/search", m.Handler.Search)
		public.GET("/:id", m.Handler.Get)
	}

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Resolver))
	auth.Use(m.Limit(120, time.Minute, middleware.KeyByUserID("posts:write")))
	{
		auth.POST("/posts", m.Handler.Create)
		auth.PUT("/posts/:id", m.Handler.Update)
		auth.DELETE("/posts/:id", m.Handler.Delete)
		auth.GET("/me/posts", m.Handler.MyPosts)
	}
}
