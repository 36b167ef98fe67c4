package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/middleware"
	"equiprent/internal/app/queries"
	"equiprent/internal/infra/security"
)

// AdminGuard accepts requests carrying a bearer token that matches the admin hash
// and marks the request context with an admin actor.
func AdminGuard(tokens security.AdminTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if err := tokens.Verify(token); err != nil {
			writeError(c, err)
			return
		}
		ctx := middleware.WithActor(c.Request.Context(), middleware.Actor{Name: "admin:" + c.ClientIP(), Admin: true})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	// Source identifies this instance in broadcast events.
	Source string
}

func (h AdminHandler) CacheStats(c *gin.Context) {
	stats, err := queries.Ask[availabilityapp.CacheStatsQuery, dto.CacheStats](c.Request.Context(), h.Queries, availabilityapp.CacheStatsQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h AdminHandler) ClearCache(c *gin.Context) {
	cmd := availabilityapp.ClearCacheCommand{Source: h.Source, Broadcast: true}
	res, err := commands.Dispatch[availabilityapp.ClearCacheCommand, dto.CacheInvalidation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) InvalidateEquipment(c *gin.Context) {
	cmd := availabilityapp.InvalidateEquipmentCommand{EquipmentID: c.Param("id"), Source: h.Source, Broadcast: true}
	res, err := commands.Dispatch[availabilityapp.InvalidateEquipmentCommand, dto.CacheInvalidation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ AdminHTTP = AdminHandler{}
