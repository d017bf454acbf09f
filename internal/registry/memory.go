package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"person-tracker-go/pkg/models"
)

// MemoryRegistry реестр сессий в памяти процесса.
// Сессии живут до перезапуска процесса и не удаляются.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*models.TrackingSession
	order    []string // ID сессий в порядке создания
}

// NewMemoryRegistry создает новый реестр сессий в памяти
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]*models.TrackingSession),
	}
}

// Create регистрирует новую сессию в статусе uploaded
func (r *MemoryRegistry) Create(filename string) (*models.TrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := &models.TrackingSession{
		SessionID:     uuid.New().String(),
		Status:        models.StatusUploaded,
		CreatedAt:     time.Now().UTC(),
		VideoFilename: filename,
	}

	r.sessions[session.SessionID] = session
	r.order = append(r.order, session.SessionID)

	return copySession(session), nil
}

// Get возвращает снимок сессии по ID
func (r *MemoryRegistry) Get(id string) (*models.TrackingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copySession(session), nil
}

// List возвращает снимки всех сессий в порядке создания
func (r *MemoryRegistry) List() ([]models.TrackingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]models.TrackingSession, 0, len(r.order))
	for _, id := range r.order {
		sessions = append(sessions, *copySession(r.sessions[id]))
	}
	return sessions, nil
}

// MarkProcessing переводит сессию из uploaded в processing
func (r *MemoryRegistry) MarkProcessing(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if session.Status != models.StatusUploaded {
		return fmt.Errorf("%w: session %s is %s, expected %s",
			ErrInvalidState, id, session.Status, models.StatusUploaded)
	}

	session.Status = models.StatusProcessing
	return nil
}

// MarkCompleted переводит сессию из processing в completed с результатом
func (r *MemoryRegistry) MarkCompleted(id string, result *models.TrackingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if session.Status != models.StatusProcessing {
		return fmt.Errorf("%w: session %s is %s, expected %s",
			ErrInvalidState, id, session.Status, models.StatusProcessing)
	}

	now := time.Now().UTC()
	session.Status = models.StatusCompleted
	session.CompletedAt = &now
	session.Result = result
	return nil
}

// MarkFailed переводит сессию из processing в failed с сообщением об ошибке
func (r *MemoryRegistry) MarkFailed(id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if session.Status != models.StatusProcessing {
		return fmt.Errorf("%w: session %s is %s, expected %s",
			ErrInvalidState, id, session.Status, models.StatusProcessing)
	}

	now := time.Now().UTC()
	session.Status = models.StatusFailed
	session.CompletedAt = &now
	session.ErrorMessage = message
	return nil
}

// copySession возвращает копию сессии для безопасной выдачи наружу.
// Результат не копируется: после терминального статуса он неизменяем.
func copySession(s *models.TrackingSession) *models.TrackingSession {
	clone := *s
	return &clone
}
