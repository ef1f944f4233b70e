// Package middleware provides HTTP middleware for the NCF API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "ncfledger/internal/core/context"
)

// HeaderActorID names the caller recorded in audit entries. Authentication
// happens upstream; the value is trusted as given.
const HeaderActorID = "X-Actor-ID"

// UserContext puts the calling actor into the request context so audit
// entries and logs can name it.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorID != "" {
			ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{ID: actorID, Source: "http"})
			c.Request = c.Request.WithContext(ctx)
			c.Set("actor_id", actorID)
		}
		c.Next()
	}
}
