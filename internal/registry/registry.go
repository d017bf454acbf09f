package registry

import (
	"errors"

	"person-tracker-go/pkg/models"
)

var (
	// ErrNotFound сессия с указанным ID не существует
	ErrNotFound = errors.New("session not found")
	// ErrInvalidState переход статуса нарушает жизненный цикл сессии
	ErrInvalidState = errors.New("invalid session state transition")
)

// Registry реестр сессий трекинга - единственный источник правды о сессиях.
// Переходы статусов выполняет один писатель (оркестратор), конкурентные
// чтения видят согласованный снимок. MarkProcessing требует статус uploaded,
// MarkCompleted и MarkFailed - статус processing; нарушение возвращает
// ErrInvalidState и никогда не игнорируется молча.
type Registry interface {
	Create(filename string) (*models.TrackingSession, error)
	Get(id string) (*models.TrackingSession, error)
	List() ([]models.TrackingSession, error)
	MarkProcessing(id string) error
	MarkCompleted(id string, result *models.TrackingResult) error
	MarkFailed(id string, message string) error
}
