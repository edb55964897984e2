package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/inkwell/internal/interface/middleware"
)

type DebugModule struct {
	Limit middleware.LimiterFactory
}

func NewDebugModule(limit middleware.LimiterFactory) *DebugModule {
	if limit == nil {
		limit = middleware.NoLimit
	}
	return &DebugModule{Limit: limit}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public metrics endpoint (expvar), rate-limited per IP
	rg.GET("/debug/vars", m.Limit(120, time.Minute, middleware.KeyByIPAndPath()), gin.WrapH(expvar.Handler()))
}
