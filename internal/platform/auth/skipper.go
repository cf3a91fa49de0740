package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass authentication: infrastructure
// endpoints, the credential exchange, and the API description.
var publicPaths = map[string]bool{
	"/health":                true,
	"/health/db":             true,
	"/metrics":               true,
	"/api/auth/login":        true,
	"/api/auth/register":     true,
	"/api/docs":              true,
	"/api/docs/openapi.json": true,
}

// AuthSkipper returns true for requests whose matched route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route path is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
