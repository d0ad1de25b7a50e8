// Package router assembles the gin engine of the ledger API.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// API mounts route groups under /api/{version} behind a shared middleware chain
type API struct {
	version    string
	middleware []gin.HandlerFunc
	groups     []*RouteGroup
}

// NewAPI creates an API for the given version, e.g. "v1"
func NewAPI(version string, middleware ...gin.HandlerFunc) *API {
	return &API{version: version, middleware: middleware}
}

// Add appends route groups
func (a *API) Add(groups ...*RouteGroup) *API {
	a.groups = append(a.groups, groups...)
	return a
}

// Mount registers every group on the engine and returns the versioned group
func (a *API) Mount(engine *gin.Engine) *gin.RouterGroup {
	api := engine.Group("/api/"+a.version, a.middleware...)
	for _, g := range a.groups {
		g.Mount(api)
	}
	return api
}

// Routes lists "METHOD /api/{version}/path" for every mounted route, in
// registration order
func (a *API) Routes() []string {
	var out []string
	for _, g := range a.groups {
		for _, r := range g.routes {
			out = append(out, r.method+" "+path.Join("/api", a.version, g.prefix, r.path))
		}
	}
	return out
}

// RouteGroup is a set of routes sharing a path prefix and optional middleware
type RouteGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewRouteGroup creates a group; name is informational
func NewRouteGroup(name, prefix string) *RouteGroup {
	return &RouteGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (g *RouteGroup) Name() string { return g.name }

// Use adds middleware run before every route of the group
func (g *RouteGroup) Use(middleware ...gin.HandlerFunc) *RouteGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *RouteGroup) add(method, p string, handlers []gin.HandlerFunc) *RouteGroup {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

func (g *RouteGroup) GET(p string, h ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodGet, p, h)
}

func (g *RouteGroup) POST(p string, h ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodPost, p, h)
}

func (g *RouteGroup) PUT(p string, h ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodPut, p, h)
}

func (g *RouteGroup) DELETE(p string, h ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodDelete, p, h)
}

// Mount registers the group's routes below rg
func (g *RouteGroup) Mount(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
}
