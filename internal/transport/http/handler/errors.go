package handler

import (
	"errors"
	"net/http"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer   = "Internal server error"
	errUnauthorized     = "Unauthorized"
	errLocationNotFound = "Location not found"
	errMalformedBody    = "Request body must be a JSON object"
)

// abortValidation writes the field -> messages map as the 400 body.
// It reports false when err is not a validation failure.
func abortValidation(c *gin.Context, err error) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	c.JSON(http.StatusBadRequest, verr.Fields)
	return true
}
