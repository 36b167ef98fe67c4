package ginserver

import (
	"fmt"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/dto"
	availabilityapp "equiprent/internal/app/handlers/availability"
	"equiprent/internal/app/queries"
	availabilitysvc "equiprent/internal/app/services/availability"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	q := availabilityapp.CheckAvailabilityQuery{
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
		EquipmentID: c.Query("equipment_id"),
	}
	var err error
	if q.IncludeAlternatives, err = boolParam(c, "include_alternatives", false); err != nil {
		writeError(c, err)
		return
	}
	if q.IncludePricing, err = boolParam(c, "include_pricing", false); err != nil {
		writeError(c, err)
		return
	}
	if q.MaxAlternatives, err = intParam(c, "max_alternatives", 0); err != nil {
		writeError(c, err)
		return
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Suggestions(c *gin.Context) {
	prefs := availabilitysvc.DefaultPreferences()
	prefs.EquipmentID = c.Query("equipment_id")
	var err error
	if prefs.IncludeWeekend, err = boolParam(c, "weekend", true); err != nil {
		writeError(c, err)
		return
	}
	if prefs.IncludeMidweek, err = boolParam(c, "midweek", true); err != nil {
		writeError(c, err)
		return
	}
	if prefs.IncludeExtended, err = boolParam(c, "extended", true); err != nil {
		writeError(c, err)
		return
	}
	if prefs.MaxSuggestions, err = intParam(c, "max", availabilitysvc.DefaultMaxSuggestions); err != nil {
		writeError(c, err)
		return
	}
	result, err := queries.Ask[availabilityapp.SmartSuggestionsQuery, dto.Suggestions](c.Request.Context(), h.Queries, availabilityapp.SmartSuggestionsQuery{Preferences: prefs})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func boolParam(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errBadQuery, name, raw)
	}
	return v, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadQuery, name, raw)
	}
	return v, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
