package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parkease-service/internal/config"
	"parkease-service/internal/recognizer"
	"parkease-service/internal/service"
)

type Handler struct {
	parkingService *service.ParkingService
	config         *config.Config
	log            zerolog.Logger
}

func NewHandler(
	parkingService *service.ParkingService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		parkingService: parkingService,
		config:         cfg,
		log:            log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/scan-license-plate", h.scanLicensePlate)
	r.GET("/scan-license-plate", h.listRecentScans)
	r.GET("/parkingData", h.listParkingData)
	r.DELETE("/parkingData/:id", h.deleteParkingData)
	r.GET("/occupancy", h.occupancy)
	r.GET("/healthz", h.healthz)
}

func (h *Handler) scanLicensePlate(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("No image file provided"))
		return
	}

	if file.Size > h.config.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, errorResponse("Image exceeds the maximum allowed size"))
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, errorResponse("Only image files are allowed"))
		return
	}

	path := filepath.Join(h.config.Upload.Dir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		h.log.Error().Err(err).Str("path", path).Msg("failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, errorResponse("Error processing license plate image"))
		return
	}

	result, err := h.parkingService.ProcessScan(c.Request.Context(), service.ScanUpload{
		Path:     path,
		Filename: file.Filename,
	})
	if err != nil {
		h.scanError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "License plate recognized and data saved successfully",
		"data":    result,
	})
}

func (h *Handler) listRecentScans(c *gin.Context) {
	scans, err := h.parkingService.RecentScans(c.Request.Context(), 0)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to fetch recent scans")
		c.JSON(http.StatusInternalServerError, errorResponse("Error fetching recent scans"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    scans,
	})
}

func (h *Handler) listParkingData(c *gin.Context) {
	records, err := h.parkingService.RecentRecords(c.Request.Context(), 0)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to fetch parking data")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve parking data"})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) deleteParkingData(c *gin.Context) {
	record, err := h.parkingService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Parking entry not found"))
			return
		}
		h.log.Error().Err(err).Str("id", c.Param("id")).Msg("failed to delete parking entry")
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to delete parking entry"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Parking entry deleted successfully",
		"deletedEntry": record,
	})
}

func (h *Handler) occupancy(c *gin.Context) {
	buckets, err := h.parkingService.Occupancy(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute occupancy")
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to compute occupancy"))
		return
	}

	c.JSON(http.StatusOK, buckets)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// scanError maps scan-pipeline failures onto the status codes the dashboard
// expects, including the upstream-specific ones.
func (h *Handler) scanError(c *gin.Context, err error) {
	var upstream *recognizer.UpstreamError

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNoPlate):
		c.JSON(http.StatusNotFound, errorResponse("No license plate detected in the image"))
	case errors.Is(err, service.ErrGatewayUnreachable):
		c.JSON(http.StatusServiceUnavailable, errorResponse("Unable to connect to license plate recognition service"))
	case errors.As(err, &upstream):
		h.upstreamError(c, upstream)
	default:
		h.log.Error().Err(err).Msg("scan processing failed")
		c.JSON(http.StatusInternalServerError, errorResponse("Error processing license plate image"))
	}
}

func (h *Handler) upstreamError(c *gin.Context, upstream *recognizer.UpstreamError) {
	switch {
	case upstream.StatusCode == http.StatusUnauthorized:
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid API key for license plate recognition service"))
	case upstream.StatusCode == http.StatusTooManyRequests:
		c.JSON(http.StatusTooManyRequests, errorResponse("Rate limit exceeded for license plate recognition service"))
	case upstream.StatusCode >= http.StatusInternalServerError:
		c.JSON(http.StatusServiceUnavailable, errorResponse("License plate recognition service is temporarily unavailable"))
	default:
		c.JSON(http.StatusBadGateway, errorResponse(
			fmt.Sprintf("License plate recognition service error: %d", upstream.StatusCode)))
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
	}
}
