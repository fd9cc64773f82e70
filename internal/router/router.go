// Package router is a thin layer over http.ServeMux that adds middleware
// chains, route groups and a catch-all for unmatched requests.
package router

import (
	"net/http"
	"slices"
	"sort"
	"sync"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router registers method-qualified ServeMux patterns ("GET /api/cart").
// Groups share the mux and the route table with the router they came from.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *routeTable
}

type routeTable struct {
	mu       sync.Mutex
	patterns []string
}

// New creates a Router. The given middleware runs for every route, in order.
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: &routeTable{},
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

func (r *Router) Put(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, handler, middleware...)
}

func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle registers handler for method and path pattern. Route middleware runs
// after the router's own chain. Registering the same route twice panics, as
// with http.ServeMux.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	route := method + " " + pattern
	r.mux.Handle(route, r.wrap(handler, middleware))
	r.routes.add(route)
}

// Group returns a router that shares this one's routes and adds middleware
// to the chain for routes registered through it.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

// NotFound sets the handler for requests no route matches.
// Method mismatches on a known path fall through to it as well.
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.Handle("/", r.wrap(handler, nil))
}

// Routes lists the registered "METHOD /pattern" routes, sorted.
func (r *Router) Routes() []string {
	r.routes.mu.Lock()
	defer r.routes.mu.Unlock()

	out := slices.Clone(r.routes.patterns)
	sort.Strings(out)
	return out
}

func (t *routeTable) add(route string) {
	t.mu.Lock()
	t.patterns = append(t.patterns, route)
	t.mu.Unlock()
}

// wrap builds chain[0](chain[1](...(handler))) so middleware runs in the
// order it was given.
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	all := append(slices.Clone(r.chain), middleware...)
	for i := len(all) - 1; i >= 0; i-- {
		handler = all[i](handler)
	}
	return handler
}
