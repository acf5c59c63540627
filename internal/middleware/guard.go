package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Well-known paths the route guard reasons about.
const (
	LoginPath       = "/login"
	DashboardPath   = "/dashboard"
	APIPrefix       = "/api/"
	callbackSegment = "/callback"
)

// Decision is the route guard's verdict for a request.
type Decision int

const (
	// DecisionContinue hands the request to its route handler unchanged.
	DecisionContinue Decision = iota
	// DecisionPassThrough continues without redirection regardless of auth
	// state (API routes, OAuth callback traffic).
	DecisionPassThrough
	// DecisionRedirectLogin sends the caller to the login page.
	DecisionRedirectLogin
	// DecisionRedirectDashboard sends the caller to the dashboard home.
	DecisionRedirectDashboard
)

// Decide is the pure access policy: no I/O, total over its inputs. All
// credential resolution happens before this in the Identity middleware.
func Decide(isAuthenticated bool, path string, query url.Values) Decision {
	// API and OAuth-callback traffic is never redirected; handlers enforce
	// their own auth.
	if path == strings.TrimSuffix(APIPrefix, "/") || strings.HasPrefix(path, APIPrefix) {
		return DecisionPassThrough
	}
	if strings.Contains(path, callbackSegment) || query.Has("code") || query.Has("access_token") {
		return DecisionPassThrough
	}

	// A login request carrying query parameters may be mid-callback; leave
	// it alone.
	if path == LoginPath && len(query) > 0 {
		return DecisionPassThrough
	}

	if isAuthenticated && path == LoginPath {
		return DecisionRedirectDashboard
	}
	if !isAuthenticated && strings.HasPrefix(path, DashboardPath) {
		return DecisionRedirectLogin
	}
	if path == "/" {
		if isAuthenticated {
			return DecisionRedirectDashboard
		}
		return DecisionRedirectLogin
	}

	return DecisionContinue
}

// Guard applies the access policy decision, issuing redirects for page
// traffic. It must run after Identity.
func Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authenticated := IdentityFromContext(c)

		switch Decide(authenticated, c.Request.URL.Path, c.Request.URL.Query()) {
		case DecisionRedirectLogin:
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
		case DecisionRedirectDashboard:
			c.Redirect(http.StatusFound, DashboardPath)
			c.Abort()
		default:
			c.Next()
		}
	}
}
