package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/inkwell/pkg/response"
)

// Module is a feature that mounts its routes on the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and mounts them once, in the order added.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	modules []Module
}

// NewRegistry mounts the /api group and gives unknown routes and methods the
// same envelope as every other error.
func NewRegistry(engine *gin.Engine) *Registry {
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "route not found", response.ErrorBody{Code: "route_not_found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed", response.ErrorBody{Code: "method_not_allowed"})
	})
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Add queues mod for registration; nil modules are skipped so optional
// features can be passed through unconditionally.
func (r *Registry) Add(mod Module) {
	if mod != nil {
		r.modules = append(r.modules, mod)
	}
}

func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
