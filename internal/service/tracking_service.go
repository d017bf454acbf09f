package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/registry"
	"person-tracker-go/internal/video"
	"person-tracker-go/pkg/models"
)

// Version версия сервиса
const Version = "1.0.0"

var (
	// ErrUnsupportedFormat расширение файла не входит в список поддерживаемых
	ErrUnsupportedFormat = errors.New("unsupported video format")
	// ErrFileTooLarge размер загружаемого файла превышает лимит
	ErrFileTooLarge = errors.New("file size exceeds limit")
)

// VideoProcessor запуск обработки одного видео (реализуется пайплайном)
type VideoProcessor interface {
	Run(ctx context.Context, videoPath, sessionID string, req models.TrackingRequest) (*models.TrackingResult, error)
}

// TrackingService оркестратор трекинга персон: валидирует загрузки,
// управляет сессиями и запускает пайплайн обработки
type TrackingService struct {
	registry       registry.Registry
	processor      VideoProcessor
	opener         video.Opener
	detector       detector.Detector
	storeDir       string
	maxUploadBytes int64
	logger         *logrus.Logger
}

// NewTrackingService создает новый сервис трекинга персон
func NewTrackingService(
	reg registry.Registry,
	processor VideoProcessor,
	opener video.Opener,
	det detector.Detector,
	storeDir string,
	maxUploadBytes int64,
	logger *logrus.Logger,
) *TrackingService {
	return &TrackingService{
		registry:       reg,
		processor:      processor,
		opener:         opener,
		detector:       det,
		storeDir:       storeDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadVideo сохраняет загруженное видео и создает сессию в статусе uploaded.
// Ошибки валидации (формат, размер, битое видео) возвращаются сразу,
// сессия при этом не создается.
func (s *TrackingService) UploadVideo(content []byte, filename string) (*models.TrackingSession, error) {
	s.logger.Infof("Загрузка видео %s (%d байт)", filename, len(content))

	if !models.IsFormatSupported(filename) {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(filename), strings.Join(models.SupportedFormats, ", "))
	}

	if int64(len(content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrFileTooLarge, len(content), s.maxUploadBytes)
	}

	if err := os.MkdirAll(s.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Сначала пишем во временный файл и проверяем видео,
	// сессия создается только для валидной загрузки
	tempFile, err := os.CreateTemp(s.storeDir, "upload_*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write video data: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := s.validateVideoFile(tempPath); err != nil {
		s.logger.Errorf("Видео %s не прошло валидацию: %v", filename, err)
		os.Remove(tempPath)
		return nil, err
	}

	session, err := s.registry.Create(filename)
	if err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	finalPath := s.videoPath(session.SessionID, filename)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to store video file: %w", err)
	}

	s.logger.Infof("Сессия %s создана для видео %s", session.SessionID, filename)
	return session, nil
}

// ProcessSession запускает обработку загруженного видео.
// Требует статус uploaded; после запуска сессия всегда оказывается
// в терминальном статусе - completed с результатом или failed с ошибкой.
func (s *TrackingService) ProcessSession(ctx context.Context, sessionID string, req models.TrackingRequest) (*models.TrackingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.registry.MarkProcessing(sessionID); err != nil {
		return nil, err
	}

	s.logger.Infof("Начинаем обработку сессии %s (порог %.2f, лимит треков %d)",
		sessionID, req.ConfidenceThreshold, req.MaxTracks)

	videoPath := s.videoPath(sessionID, session.VideoFilename)
	result, err := s.processor.Run(ctx, videoPath, sessionID, req)
	if err != nil {
		s.logger.Errorf("Обработка сессии %s завершилась ошибкой: %v", sessionID, err)
		if markErr := s.registry.MarkFailed(sessionID, err.Error()); markErr != nil {
			s.logger.Errorf("Не удалось перевести сессию %s в failed: %v", sessionID, markErr)
		}
		return nil, err
	}

	if err := s.registry.MarkCompleted(sessionID, result); err != nil {
		return nil, fmt.Errorf("failed to mark session completed: %w", err)
	}

	s.logger.Infof("Сессия %s завершена: %d кадров, %d наблюдений",
		sessionID, result.TotalFrames, len(result.Tracks))
	return result, nil
}

// ProcessDirect загружает и обрабатывает видео за один вызов без
// регистрации сессии. Временный файл удаляется на любом пути выхода.
func (s *TrackingService) ProcessDirect(ctx context.Context, content []byte, filename string, req models.TrackingRequest) (*models.TrackingResult, error) {
	if !models.IsFormatSupported(filename) {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(filename), strings.Join(models.SupportedFormats, ", "))
	}

	if int64(len(content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrFileTooLarge, len(content), s.maxUploadBytes)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp("", "direct_*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write video data: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	sessionID := uuid.New().String()
	s.logger.Infof("Прямая обработка видео %s (сессия %s)", filename, sessionID)

	return s.processor.Run(ctx, tempPath, sessionID, req)
}

// Session возвращает сессию по ID
func (s *TrackingService) Session(sessionID string) (*models.TrackingSession, error) {
	return s.registry.Get(sessionID)
}

// Sessions возвращает все сессии трекинга
func (s *TrackingService) Sessions() ([]models.TrackingSession, error) {
	return s.registry.List()
}

// Summary возвращает агрегированную статистику по сессиям.
// Чистая агрегация текущего содержимого реестра, без побочных эффектов.
func (s *TrackingService) Summary() (*models.TrackingSummary, error) {
	sessions, err := s.registry.List()
	if err != nil {
		return nil, err
	}

	summary := &models.TrackingSummary{TotalSessions: len(sessions)}
	for _, session := range sessions {
		switch session.Status {
		case models.StatusProcessing:
			summary.ActiveSessions++
		case models.StatusCompleted:
			summary.CompletedSessions++
		case models.StatusFailed:
			summary.FailedSessions++
		}
	}
	return summary, nil
}

// SupportedFormats возвращает список поддерживаемых расширений
func (s *TrackingService) SupportedFormats() []string {
	return models.SupportedFormats
}

// ValidateFormat проверяет расширение файла
func (s *TrackingService) ValidateFormat(filename string) bool {
	return models.IsFormatSupported(filename)
}

// CheckHealth проверяет готовность детектора персон
func (s *TrackingService) CheckHealth() *models.HealthResponse {
	ready := s.detector.Ready()
	status := "healthy"
	if !ready {
		status = "unhealthy"
	}
	return &models.HealthResponse{
		Status:        status,
		DetectorReady: ready,
		Version:       Version,
	}
}

// validateVideoFile открывает видео и проверяет базовые свойства контейнера
func (s *TrackingService) validateVideoFile(path string) error {
	source, err := s.opener.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	return video.Validate(source.Metadata())
}

// videoPath возвращает путь к сохраненному видео сессии
func (s *TrackingService) videoPath(sessionID, filename string) string {
	return filepath.Join(s.storeDir, fmt.Sprintf("%s_%s", sessionID, filepath.Base(filename)))
}
