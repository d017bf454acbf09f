package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/pipeline"
	"person-tracker-go/internal/registry"
	"person-tracker-go/internal/service"
	"person-tracker-go/internal/video"
	"person-tracker-go/pkg/models"
)

// maxMultipartMemory лимит памяти для парсинга multipart формы
const maxMultipartMemory = 32 << 20

// TrackingHandler обрабатывает HTTP запросы трекинга персон
type TrackingHandler struct {
	trackingService *service.TrackingService
	logger          *logrus.Logger
}

// NewTrackingHandler создает новый экземпляр TrackingHandler
func NewTrackingHandler(trackingService *service.TrackingService, logger *logrus.Logger) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		logger:          logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *TrackingHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/tracking")
	{
		api.GET("/health", h.CheckHealth)
		api.POST("/upload", h.UploadVideo)
		api.POST("/process/:id", h.ProcessSession)
		api.POST("/process-direct", h.ProcessDirect)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.GET("/summary", h.GetSummary)
		api.GET("/formats", h.GetFormats)
		api.POST("/validate", h.ValidateVideo)
	}
}

// CheckHealth проверяет состояние сервиса трекинга
func (h *TrackingHandler) CheckHealth(c *gin.Context) {
	health := h.trackingService.CheckHealth()

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}

// UploadVideo принимает видео файл и создает сессию трекинга
func (h *TrackingHandler) UploadVideo(c *gin.Context) {
	h.logger.Info("Получен запрос на загрузку видео")

	content, filename, ok := h.readVideoFile(c)
	if !ok {
		return
	}

	session, err := h.trackingService.UploadVideo(content, filename)
	if err != nil {
		h.logger.Errorf("Ошибка загрузки видео: %v", err)
		h.writeError(c, err)
		return
	}

	h.logger.Infof("Видео загружено, сессия %s", session.SessionID)
	c.JSON(http.StatusOK, session)
}

// ProcessSession запускает обработку загруженной сессии
func (h *TrackingHandler) ProcessSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.logger.Infof("Получен запрос на обработку сессии %s", sessionID)

	req, err := parseTrackingRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.trackingService.ProcessSession(c.Request.Context(), sessionID, req)
	if err != nil {
		h.logger.Errorf("Ошибка обработки сессии %s: %v", sessionID, err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ProcessDirect загружает и обрабатывает видео за один вызов
func (h *TrackingHandler) ProcessDirect(c *gin.Context) {
	h.logger.Info("Получен запрос на прямую обработку видео")

	content, filename, ok := h.readVideoFile(c)
	if !ok {
		return
	}

	req, err := parseTrackingRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.trackingService.ProcessDirect(c.Request.Context(), content, filename, req)
	if err != nil {
		h.logger.Errorf("Ошибка прямой обработки: %v", err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSessions возвращает все сессии трекинга
func (h *TrackingHandler) ListSessions(c *gin.Context) {
	sessions, err := h.trackingService.Sessions()
	if err != nil {
		h.logger.Errorf("Ошибка получения списка сессий: %v", err)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession возвращает сессию по ID
func (h *TrackingHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.trackingService.Session(sessionID)
	if err != nil {
		h.logger.Errorf("Ошибка получения сессии %s: %v", sessionID, err)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSummary возвращает агрегированную статистику по сессиям
func (h *TrackingHandler) GetSummary(c *gin.Context) {
	summary, err := h.trackingService.Summary()
	if err != nil {
		h.logger.Errorf("Ошибка получения статистики: %v", err)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetFormats возвращает список поддерживаемых форматов видео
func (h *TrackingHandler) GetFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"supported_formats":  h.trackingService.SupportedFormats(),
		"recommended_format": ".mp4",
		"max_duration":       fmt.Sprintf("%.0f seconds", video.MaxDurationSeconds),
	})
}

// ValidateVideo проверяет видео файл без запуска обработки
func (h *TrackingHandler) ValidateVideo(c *gin.Context) {
	content, filename, ok := h.readVideoFile(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":     filename,
		"format_valid": h.trackingService.ValidateFormat(filename),
		"file_size":    len(content),
	})
}

// readVideoFile извлекает видео файл из multipart формы
func (h *TrackingHandler) readVideoFile(c *gin.Context) ([]byte, string, bool) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return nil, "", false
	}

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		h.logger.Errorf("Ошибка получения видео файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Видео файл обязателен"})
		return nil, "", false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Ошибка чтения видео файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения видео файла"})
		return nil, "", false
	}

	h.logger.Infof("Прочитано %d байт видео данных из файла %s", len(content), header.Filename)
	return content, header.Filename, true
}

// parseTrackingRequest собирает параметры обработки из формы
func parseTrackingRequest(c *gin.Context) (models.TrackingRequest, error) {
	req := models.DefaultTrackingRequest()

	if value := c.PostForm("confidence_threshold"); value != "" {
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return req, fmt.Errorf("confidence_threshold должен быть числом")
		}
		req.ConfidenceThreshold = threshold
	}

	if value := c.PostForm("max_tracks"); value != "" {
		maxTracks, err := strconv.Atoi(value)
		if err != nil {
			return req, fmt.Errorf("max_tracks должен быть целым числом")
		}
		req.MaxTracks = maxTracks
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// writeError преобразует ошибку сервиса в HTTP ответ
func (h *TrackingHandler) writeError(c *gin.Context, err error) {
	var processingErr *pipeline.ProcessingError

	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, video.ErrOpen), errors.Is(err, video.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Сессия не найдена"})
	case errors.Is(err, registry.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, detector.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &processingErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
	}
}
