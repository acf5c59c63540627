package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// refreshRequested reports whether the caller asked to bypass the cache.
func refreshRequested(c *gin.Context) bool {
	return strings.EqualFold(c.Query("refresh"), "true")
}
