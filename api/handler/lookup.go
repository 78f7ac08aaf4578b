package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n8dizzle/Christmas-automations/models"
)

// Lookup returns a handler for POST /api/v1/lookup.
//
// Every terminal lookup status is a 200; the record's lookup_status tells
// the caller what happened. Only malformed requests get a 400.
func Lookup(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
			return
		}
		req.Normalize()
		if req.SerialNumber == "" {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, "serial_number must not be blank"))
			return
		}

		c.JSON(http.StatusOK, d.Lookup(c.Request.Context(), req))
	}
}
