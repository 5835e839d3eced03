// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/handler"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/middleware"
)

// Protected carries the middleware every authenticated route runs, in
// order: JWT validation, rate limit, then the per-user response cache.
type Protected struct {
	Auth      echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func (p Protected) chain() []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, m := range []echo.MiddlewareFunc{p.Auth, p.RateLimit, p.Cache} {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers signup/signin and the identity endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p Protected) {
	g := e.Group("/auth")
	if p.RateLimit != nil {
		g.Use(p.RateLimit)
	}
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin)

	me := e.Group("/me", p.Auth)
	me.GET("", a.Me)
}

// RegisterTodos registers the todo endpoints.  Creating requires a USER or
// ADMIN role; reads only require a valid token.
func RegisterTodos(e *echo.Echo, t *handler.TodoHandler, p Protected) {
	g := e.Group("/todos", p.chain()...)
	g.POST("", t.Create, middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	g.GET("", t.List)
	// static segment registered before the param route
	g.GET("/search", t.Search)
	g.GET("/:todoId", t.Get)
}
