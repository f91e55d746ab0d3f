package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are route patterns reachable without a bearer token.
var publicPaths = map[string]bool{
	"/":                      true,
	"/health":                true,
	"/health/db":             true,
	"/api/auth/register":     true,
	"/api/auth/login":        true,
	"/api/auth/doctor-login": true,
	"/api/auth/logout":       true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
