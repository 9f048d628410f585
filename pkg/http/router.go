package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router with fixed-path redirects and
// JSON 404/405 responses.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	writeStatusJSON(ctx, StatusNotFound)
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	writeStatusJSON(ctx, StatusMethodNotAllowed)
}

func writeStatusJSON(ctx *RequestCtx, code int) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(code)
	ctx.Response.SetBodyString(`{"error":"` + StatusText(code) + `"}`)
}
