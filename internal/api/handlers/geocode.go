package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/dto"
	"tradie-schedule-service/internal/ports"
)

type GeocodeHandler struct {
	Geocoder ports.Geocoder
}

// Geocode handles GET /geocode?address=.
func (h *GeocodeHandler) Geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		writeError(c, http.StatusBadRequest, "address is required")
		return
	}

	res, err := h.Geocoder.Geocode(c.Request.Context(), address)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GeocodeResponse{
		FormattedAddress: res.FormattedAddress,
		Lat:              res.Lat,
		Lng:              res.Lng,
		Suburb:           res.Suburb,
		State:            res.State,
		Postcode:         res.Postcode,
		PlaceID:          res.PlaceID,
	})
}
