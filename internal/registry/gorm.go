package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"person-tracker-go/internal/model"
	"person-tracker-go/pkg/models"
)

// GormRegistry реестр сессий с постоянным хранением в PostgreSQL.
// Реализует тот же контракт переходов, что и MemoryRegistry;
// предусловия статусов проверяются условным UPDATE.
type GormRegistry struct {
	db *gorm.DB
}

// NewGormRegistry создает реестр сессий поверх базы данных
func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

// Create регистрирует новую сессию в статусе uploaded
func (r *GormRegistry) Create(filename string) (*models.TrackingSession, error) {
	record := &model.SessionRecord{
		SessionID:     uuid.New().String(),
		Status:        string(models.StatusUploaded),
		VideoFilename: filename,
		CreatedAt:     time.Now().UTC(),
	}

	if err := r.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return record.ToSession()
}

// Get возвращает сессию по ID
func (r *GormRegistry) Get(id string) (*models.TrackingSession, error) {
	var record model.SessionRecord
	err := r.db.Where("session_id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return record.ToSession()
}

// List возвращает все сессии в порядке создания
func (r *GormRegistry) List() ([]models.TrackingSession, error) {
	var records []model.SessionRecord
	if err := r.db.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]models.TrackingSession, 0, len(records))
	for i := range records {
		session, err := records[i].ToSession()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// MarkProcessing переводит сессию из uploaded в processing
func (r *GormRegistry) MarkProcessing(id string) error {
	result := r.db.Model(&model.SessionRecord{}).
		Where("session_id = ? AND status = ?", id, string(models.StatusUploaded)).
		Update("status", string(models.StatusProcessing))
	if result.Error != nil {
		return fmt.Errorf("failed to mark session processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionError(id, models.StatusUploaded)
	}
	return nil
}

// MarkCompleted переводит сессию из processing в completed с результатом
func (r *GormRegistry) MarkCompleted(id string, trackingResult *models.TrackingResult) error {
	data, err := json.Marshal(trackingResult)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	result := r.db.Model(&model.SessionRecord{}).
		Where("session_id = ? AND status = ?", id, string(models.StatusProcessing)).
		Updates(map[string]interface{}{
			"status":       string(models.StatusCompleted),
			"result_json":  data,
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark session completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionError(id, models.StatusProcessing)
	}
	return nil
}

// MarkFailed переводит сессию из processing в failed с сообщением об ошибке
func (r *GormRegistry) MarkFailed(id string, message string) error {
	result := r.db.Model(&model.SessionRecord{}).
		Where("session_id = ? AND status = ?", id, string(models.StatusProcessing)).
		Updates(map[string]interface{}{
			"status":        string(models.StatusFailed),
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark session failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.transitionError(id, models.StatusProcessing)
	}
	return nil
}

// transitionError различает отсутствующую сессию и неверный статус
func (r *GormRegistry) transitionError(id string, expected models.SessionStatus) error {
	var record model.SessionRecord
	err := r.db.Select("status").Where("session_id = ?", id).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check session status: %w", err)
	}
	return fmt.Errorf("%w: session %s is %s, expected %s", ErrInvalidState, id, record.Status, expected)
}
