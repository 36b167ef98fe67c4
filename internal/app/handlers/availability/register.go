package availability

import (
	"equiprent/internal/app/commands"
	"equiprent/internal/app/dto"
	"equiprent/internal/app/outbox"
	"equiprent/internal/app/queries"
	availabilitysvc "equiprent/internal/app/services/availability"
)

// Register wires every availability handler into the registries.
func Register(cmds *commands.Registry, qs *queries.Registry, svc *availabilitysvc.Service, events *outbox.Buffer) {
	queries.Register[CheckAvailabilityQuery, dto.Availability](qs, &CheckAvailabilityHandler{Service: svc})
	queries.Register[SmartSuggestionsQuery, dto.Suggestions](qs, &SmartSuggestionsHandler{Service: svc})
	queries.Register[CacheStatsQuery, dto.CacheStats](qs, &CacheStatsHandler{Service: svc})
	commands.Register[ClearCacheCommand, dto.CacheInvalidation](cmds, &ClearCacheHandler{Service: svc, Events: events, Now: svc.Now})
	commands.Register[InvalidateEquipmentCommand, dto.CacheInvalidation](cmds, &InvalidateEquipmentHandler{Service: svc, Events: events, Now: svc.Now})
}
