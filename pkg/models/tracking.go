package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SessionStatus статус сессии трекинга
type SessionStatus string

const (
	StatusUploaded   SessionStatus = "uploaded"   // Видео загружено, обработка не начата
	StatusProcessing SessionStatus = "processing" // Идет обработка видео
	StatusCompleted  SessionStatus = "completed"  // Обработка успешно завершена
	StatusFailed     SessionStatus = "failed"     // Обработка завершилась ошибкой
)

// SupportedFormats список поддерживаемых расширений видео файлов
var SupportedFormats = []string{".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv"}

// IsFormatSupported проверяет расширение файла по списку поддерживаемых
func IsFormatSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedFormats {
		if ext == supported {
			return true
		}
	}
	return false
}

// BoundingBox представляет ограничивающий прямоугольник детекции
type BoundingBox struct {
	X1         float64 `json:"x1"`         // Левая верхняя X координата
	Y1         float64 `json:"y1"`         // Левая верхняя Y координата
	X2         float64 `json:"x2"`         // Правая нижняя X координата
	Y2         float64 `json:"y2"`         // Правая нижняя Y координата
	Confidence float64 `json:"confidence"` // Уверенность детекции (0-1)
}

// PersonTrack одно наблюдение трека на конкретном кадре
type PersonTrack struct {
	TrackID     int         `json:"track_id"`     // Постоянный ID трека
	BBox        BoundingBox `json:"bbox"`         // Координаты ограничивающего прямоугольника
	FrameNumber int         `json:"frame_number"` // Номер кадра (с 1)
	Timestamp   float64     `json:"timestamp"`    // Время в видео в секундах
	Confidence  float64     `json:"confidence"`   // Уверенность трека (0-1)
}

// VideoInfo метаданные обработанного видео
type VideoInfo struct {
	Filename    string  `json:"filename"`     // Имя файла
	Duration    float64 `json:"duration"`     // Длительность в секундах
	Resolution  string  `json:"resolution"`   // Разрешение в формате WxH
	FPS         float64 `json:"fps"`          // Частота кадров
	TotalFrames int     `json:"total_frames"` // Общее количество кадров в контейнере
}

// TrackingResult результат обработки одного видео
type TrackingResult struct {
	SessionID      string        `json:"session_id"`      // ID сессии трекинга
	VideoInfo      VideoInfo     `json:"video_info"`      // Метаданные видео
	Tracks         []PersonTrack `json:"tracks"`          // Наблюдения треков в порядке кадров
	TotalFrames    int           `json:"total_frames"`    // Фактически обработано кадров
	ProcessingTime float64       `json:"processing_time"` // Время обработки в секундах
	FPS            float64       `json:"fps"`             // Частота кадров видео
}

// TrackingSession сессия трекинга: от загрузки до завершения обработки
type TrackingSession struct {
	SessionID     string          `json:"session_id"`              // Уникальный ID сессии
	Status        SessionStatus   `json:"status"`                  // Текущий статус
	CreatedAt     time.Time       `json:"created_at"`              // Время создания
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`  // Время завершения (терминальный статус)
	VideoFilename string          `json:"video_filename"`          // Оригинальное имя видео файла
	ErrorMessage  string          `json:"error_message,omitempty"` // Сообщение об ошибке для статуса failed
	Result        *TrackingResult `json:"result,omitempty"`        // Результат для статуса completed
}

// TrackingRequest параметры одного запуска обработки
type TrackingRequest struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"` // Порог уверенности детектора (0.1-1.0)
	MaxTracks           int     `json:"max_tracks"`           // Мягкий лимит наблюдений (1-1000)
}

// DefaultTrackingRequest возвращает запрос с параметрами по умолчанию
func DefaultTrackingRequest() TrackingRequest {
	return TrackingRequest{
		ConfidenceThreshold: 0.25,
		MaxTracks:           100,
	}
}

// Validate проверяет диапазоны параметров запроса
func (r TrackingRequest) Validate() error {
	if r.ConfidenceThreshold < 0.1 || r.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("confidence_threshold must be between 0.1 and 1.0, got %g", r.ConfidenceThreshold)
	}
	if r.MaxTracks < 1 || r.MaxTracks > 1000 {
		return fmt.Errorf("max_tracks must be between 1 and 1000, got %d", r.MaxTracks)
	}
	return nil
}

// MaxObservations предел накопленных наблюдений для одного запуска.
// Превышение останавливает цикл по кадрам без ошибки (частичный результат).
func (r TrackingRequest) MaxObservations() int {
	return r.MaxTracks * 10
}

// TrackingSummary агрегированная статистика по всем сессиям
type TrackingSummary struct {
	TotalSessions     int `json:"total_sessions"`     // Всего сессий
	ActiveSessions    int `json:"active_sessions"`    // Сессий в обработке
	CompletedSessions int `json:"completed_sessions"` // Успешно завершенных
	FailedSessions    int `json:"failed_sessions"`    // Завершенных с ошибкой
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status        string `json:"status"`         // Статус сервиса (healthy/unhealthy)
	DetectorReady bool   `json:"detector_ready"` // Готов ли детектор персон
	Version       string `json:"version"`        // Версия сервиса
}
