// Package router assembles the versioned HTTP API from route groups.
package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar adds its routes below the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Route is one registered method and path
type Route struct {
	Method string
	Path   string
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the prefix, "v1" by default
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router over engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix is the path every API route lives under
func (r *Router) Prefix() string {
	return "/api/" + r.apiVersion
}

// Use adds middleware to the API group only
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar and returns the resulting API routes
func (r *Router) Setup() []Route {
	api := r.engine.Group(r.Prefix(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}

	var routes []Route
	for _, info := range r.engine.Routes() {
		if info.Path == r.Prefix() || strings.HasPrefix(info.Path, r.Prefix()+"/") {
			routes = append(routes, Route{Method: info.Method, Path: info.Path})
		}
	}
	return routes
}

// DomainGroup is a named set of routes sharing a prefix and middleware
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []groupRoute
	subgroups  []*DomainGroup
}

type groupRoute struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (dg *DomainGroup) Name() string { return dg.name }

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Use adds middleware to this group and its subgroups
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET adds a read route
func (dg *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, relativePath, handlers)
}

// POST adds a write route
func (dg *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, relativePath, handlers)
}

// DELETE adds a removal route
func (dg *DomainGroup) DELETE(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodDelete, relativePath, handlers)
}

func (dg *DomainGroup) add(method, relativePath string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, groupRoute{method: method, path: relativePath, handlers: handlers})
	return dg
}

// Group nests a new group below this one
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// Routes lists the group's routes relative to where it is mounted
func (dg *DomainGroup) Routes() []Route {
	var out []Route
	for _, r := range dg.routes {
		out = append(out, Route{Method: r.method, Path: joinPath(dg.prefix, r.path)})
	}
	for _, sub := range dg.subgroups {
		for _, r := range sub.Routes() {
			out = append(out, Route{Method: r.Method, Path: joinPath(dg.prefix, r.Path)})
		}
	}
	return out
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
	for _, sub := range dg.subgroups {
		sub.RegisterRoutes(group)
	}
}

func joinPath(prefix, relative string) string {
	if relative == "" {
		return prefix
	}
	joined := path.Join(prefix, relative)
	if joined == "." {
		return "/"
	}
	return joined
}
