package model

import (
	"encoding/json"
	"fmt"
	"time"

	"person-tracker-go/pkg/models"
)

// SessionRecord представляет сессию трекинга в базе данных.
// Результат обработки хранится как JSON документ: после терминального
// статуса он неизменяем и целиком читается/пишется одним значением.
type SessionRecord struct {
	SessionID     string     `gorm:"primaryKey;type:varchar(36)" json:"session_id"`
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`
	VideoFilename string     `gorm:"type:varchar(255)" json:"video_filename"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message"`
	ResultJSON    []byte     `gorm:"type:jsonb" json:"-"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// TableName указывает имя таблицы для SessionRecord
func (SessionRecord) TableName() string {
	return "tracking_sessions"
}

// ToSession преобразует запись базы данных в сессию API
func (r *SessionRecord) ToSession() (*models.TrackingSession, error) {
	session := &models.TrackingSession{
		SessionID:     r.SessionID,
		Status:        models.SessionStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
		VideoFilename: r.VideoFilename,
		ErrorMessage:  r.ErrorMessage,
	}

	if len(r.ResultJSON) > 0 {
		var result models.TrackingResult
		if err := json.Unmarshal(r.ResultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session result: %w", err)
		}
		session.Result = &result
	}

	return session, nil
}

// FromSession преобразует сессию API в запись базы данных
func FromSession(s *models.TrackingSession) (*SessionRecord, error) {
	record := &SessionRecord{
		SessionID:     s.SessionID,
		Status:        string(s.Status),
		VideoFilename: s.VideoFilename,
		ErrorMessage:  s.ErrorMessage,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
	}

	if s.Result != nil {
		data, err := json.Marshal(s.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session result: %w", err)
		}
		record.ResultJSON = data
	}

	return record, nil
}
