package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"person-tracker-go/pkg/models"
)

func TestMemoryRegistryCreateAndGet(t *testing.T) {
	reg := NewMemoryRegistry()

	session, err := reg.Create("store.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, models.StatusUploaded, session.Status)
	assert.Equal(t, "store.mp4", session.VideoFilename)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Nil(t, session.CompletedAt)

	got, err := reg.Get(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, got.SessionID)
}

func TestMemoryRegistryGetNotFound(t *testing.T) {
	reg := NewMemoryRegistry()

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistryListOrder(t *testing.T) {
	reg := NewMemoryRegistry()

	first, _ := reg.Create("a.mp4")
	second, _ := reg.Create("b.mp4")

	sessions, err := reg.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.SessionID, sessions[0].SessionID)
	assert.Equal(t, second.SessionID, sessions[1].SessionID)
}

func TestMemoryRegistryLifecycle(t *testing.T) {
	reg := NewMemoryRegistry()
	session, _ := reg.Create("a.mp4")

	require.NoError(t, reg.MarkProcessing(session.SessionID))

	got, _ := reg.Get(session.SessionID)
	assert.Equal(t, models.StatusProcessing, got.Status)

	result := &models.TrackingResult{SessionID: session.SessionID, TotalFrames: 42}
	require.NoError(t, reg.MarkCompleted(session.SessionID, result))

	got, _ = reg.Get(session.SessionID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 42, got.Result.TotalFrames)
	assert.NotNil(t, got.CompletedAt)
}

func TestMemoryRegistryMarkFailed(t *testing.T) {
	reg := NewMemoryRegistry()
	session, _ := reg.Create("a.mp4")

	require.NoError(t, reg.MarkProcessing(session.SessionID))
	require.NoError(t, reg.MarkFailed(session.SessionID, "decode exploded"))

	got, _ := reg.Get(session.SessionID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "decode exploded", got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)
}

// Повторный запуск обработки той же сессии должен отклоняться
func TestMemoryRegistryDoubleProcessing(t *testing.T) {
	reg := NewMemoryRegistry()
	session, _ := reg.Create("a.mp4")

	require.NoError(t, reg.MarkProcessing(session.SessionID))
	assert.ErrorIs(t, reg.MarkProcessing(session.SessionID), ErrInvalidState)
}

func TestMemoryRegistryTerminalMarksRequireProcessing(t *testing.T) {
	reg := NewMemoryRegistry()
	session, _ := reg.Create("a.mp4")

	// Сессия еще в uploaded
	assert.ErrorIs(t, reg.MarkCompleted(session.SessionID, &models.TrackingResult{}), ErrInvalidState)
	assert.ErrorIs(t, reg.MarkFailed(session.SessionID, "boom"), ErrInvalidState)

	assert.ErrorIs(t, reg.MarkProcessing("missing"), ErrNotFound)
	assert.ErrorIs(t, reg.MarkCompleted("missing", nil), ErrNotFound)
	assert.ErrorIs(t, reg.MarkFailed("missing", "boom"), ErrNotFound)
}

// Выданный снимок не должен быть окном во внутреннее состояние реестра
func TestMemoryRegistrySnapshotIsolation(t *testing.T) {
	reg := NewMemoryRegistry()
	session, _ := reg.Create("a.mp4")

	session.Status = models.StatusFailed
	session.ErrorMessage = "mutated outside"

	got, err := reg.Get(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, got.Status)
	assert.Empty(t, got.ErrorMessage)
}
