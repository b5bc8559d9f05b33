package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/validate"
	"github.com/gin-gonic/gin"
)

type locationUsecaser interface {
	ListLocations(ctx context.Context) ([]*domain.Location, error)
	CreateLocation(ctx context.Context, in validate.Input) (*domain.Location, error)
	GetLocation(ctx context.Context, id string) (*domain.Location, error)
	UpdateLocation(ctx context.Context, id string, in validate.Input) (*domain.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

type LocationHandler struct {
	locationUsecase locationUsecaser
	logger          *slog.Logger
}

func NewLocationHandler(locationUsecase locationUsecaser, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		locationUsecase: locationUsecase,
		logger:          logger.With("component", "location_handler"),
	}
}

type locationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Zip       string    `json:"zip"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newLocationResponse(l *domain.Location) locationResponse {
	return locationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Slug:      l.Slug,
		Zip:       l.Zip,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

type locationMutationResponse struct {
	Message  string           `json:"message"`
	Location locationResponse `json:"location"`
}

// GET /locations
func (h *LocationHandler) List(c *gin.Context) {
	locations, err := h.locationUsecase.ListLocations(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list locations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	resp := make([]locationResponse, 0, len(locations))
	for _, l := range locations {
		resp = append(resp, newLocationResponse(l))
	}
	c.JSON(http.StatusOK, resp)
}

// POST /locations
func (h *LocationHandler) Create(c *gin.Context) {
	var in validate.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMalformedBody})
		return
	}

	location, err := h.locationUsecase.CreateLocation(c.Request.Context(), in)
	if err != nil {
		if abortValidation(c, err) {
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "create location", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, locationMutationResponse{
		Message:  "Location created successfully",
		Location: newLocationResponse(location),
	})
}

// GET /locations/:id
func (h *LocationHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	location, err := h.locationUsecase.GetLocation(c.Request.Context(), id)
	if err != nil {
		h.writeLookupError(c, "get location", id, err)
		return
	}

	c.JSON(http.StatusOK, newLocationResponse(location))
}

// PUT /locations/:id (also PATCH)
// Only the fields present in the body are validated and changed.
func (h *LocationHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var in validate.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMalformedBody})
		return
	}

	location, err := h.locationUsecase.UpdateLocation(c.Request.Context(), id, in)
	if err != nil {
		if abortValidation(c, err) {
			return
		}
		h.writeLookupError(c, "update location", id, err)
		return
	}

	c.JSON(http.StatusOK, locationMutationResponse{
		Message:  "Location updated successfully",
		Location: newLocationResponse(location),
	})
}

// DELETE /locations/:id
func (h *LocationHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.locationUsecase.DeleteLocation(c.Request.Context(), id); err != nil {
		h.writeLookupError(c, "delete location", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted successfully"})
}

func (h *LocationHandler) writeLookupError(c *gin.Context, op, id string, err error) {
	if errors.Is(err, domain.ErrLocationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errLocationNotFound})
		return
	}
	h.logger.ErrorContext(c.Request.Context(), op, "location_id", id, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}
