package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/registry"
	"person-tracker-go/internal/video"
	"person-tracker-go/pkg/models"
)

// fakeSource минимальный источник для валидации загрузки
type fakeSource struct {
	meta video.Metadata
}

func (s *fakeSource) Metadata() video.Metadata       { return s.meta }
func (s *fakeSource) NextFrame() (video.Frame, error) { return video.Frame{}, io.EOF }
func (s *fakeSource) Close() error                   { return nil }

// fakeOpener управляемый Opener для тестов сервиса
type fakeOpener struct {
	meta    video.Metadata
	openErr error
}

func (o *fakeOpener) Open(path string) (video.Source, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	return &fakeSource{meta: o.meta}, nil
}

// fakeProcessor подменяет пайплайн и записывает путь запуска
type fakeProcessor struct {
	result   *models.TrackingResult
	err      error
	lastPath string
	calls    int
}

func (p *fakeProcessor) Run(ctx context.Context, videoPath, sessionID string, req models.TrackingRequest) (*models.TrackingResult, error) {
	p.calls++
	p.lastPath = videoPath
	if p.err != nil {
		return nil, p.err
	}
	result := *p.result
	result.SessionID = sessionID
	return &result, nil
}

// readyDetector и notReadyDetector детекторы с фиксированной готовностью
type readyDetector struct{}

func (readyDetector) Detect(frame video.Frame, threshold float64) ([]detector.Detection, error) {
	return nil, nil
}
func (readyDetector) Ready() bool  { return true }
func (readyDetector) Close() error { return nil }

type notReadyDetector struct{}

func (notReadyDetector) Detect(frame video.Frame, threshold float64) ([]detector.Detection, error) {
	return nil, detector.ErrModelUnavailable
}
func (notReadyDetector) Ready() bool  { return false }
func (notReadyDetector) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func validMeta() video.Metadata {
	return video.Metadata{FPS: 30, TotalFrames: 90, Width: 640, Height: 480}
}

type fixture struct {
	svc       *TrackingService
	registry  *registry.MemoryRegistry
	processor *fakeProcessor
	opener    *fakeOpener
	dir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.NewMemoryRegistry()
	processor := &fakeProcessor{result: &models.TrackingResult{TotalFrames: 90}}
	opener := &fakeOpener{meta: validMeta()}
	dir := t.TempDir()

	svc := NewTrackingService(reg, processor, opener, readyDetector{}, dir, 500*1024*1024, quietLogger())
	return &fixture{svc: svc, registry: reg, processor: processor, opener: opener, dir: dir}
}

func TestUploadVideoCreatesSession(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.UploadVideo([]byte("fake video bytes"), "store.mp4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, session.Status)
	assert.Equal(t, "store.mp4", session.VideoFilename)

	// Файл сохранен под ключом сессии
	stored := filepath.Join(f.dir, fmt.Sprintf("%s_store.mp4", session.SessionID))
	_, statErr := os.Stat(stored)
	assert.NoError(t, statErr)
}

// Неподдерживаемое расширение никогда не создает сессию
func TestUploadVideoUnsupportedFormat(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UploadVideo([]byte("not a video"), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	sessions, _ := f.registry.List()
	assert.Empty(t, sessions)
}

func TestUploadVideoTooLarge(t *testing.T) {
	f := newFixture(t)
	svc := NewTrackingService(f.registry, f.processor, f.opener, readyDetector{}, f.dir, 10, quietLogger())

	_, err := svc.UploadVideo(make([]byte, 11), "big.mp4")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	sessions, _ := f.registry.List()
	assert.Empty(t, sessions)
}

// Битое видео отклоняется на загрузке: ни сессии, ни файла
func TestUploadVideoCorruptFile(t *testing.T) {
	f := newFixture(t)
	f.opener.openErr = fmt.Errorf("%w: truncated container", video.ErrOpen)

	_, err := f.svc.UploadVideo([]byte("garbage"), "broken.mp4")
	assert.ErrorIs(t, err, video.ErrOpen)

	sessions, _ := f.registry.List()
	assert.Empty(t, sessions)

	entries, readErr := os.ReadDir(f.dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no file must be left behind")
}

func TestUploadVideoRejectsTooLong(t *testing.T) {
	f := newFixture(t)
	f.opener.meta = video.Metadata{FPS: 30, TotalFrames: 30 * 700, Width: 640, Height: 480}

	_, err := f.svc.UploadVideo([]byte("long video"), "long.mp4")
	assert.ErrorIs(t, err, video.ErrValidation)
}

func TestProcessSessionCompletes(t *testing.T) {
	f := newFixture(t)
	session, err := f.svc.UploadVideo([]byte("fake"), "store.mp4")
	require.NoError(t, err)

	result, err := f.svc.ProcessSession(context.Background(), session.SessionID, models.DefaultTrackingRequest())
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, result.SessionID)

	// Пайплайн получил путь к сохраненному файлу
	assert.Contains(t, f.processor.lastPath, session.SessionID)

	got, _ := f.svc.Session(session.SessionID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
}

// Повторный запуск после выхода из uploaded отклоняется
func TestProcessSessionTwice(t *testing.T) {
	f := newFixture(t)
	session, _ := f.svc.UploadVideo([]byte("fake"), "store.mp4")

	_, err := f.svc.ProcessSession(context.Background(), session.SessionID, models.DefaultTrackingRequest())
	require.NoError(t, err)

	_, err = f.svc.ProcessSession(context.Background(), session.SessionID, models.DefaultTrackingRequest())
	assert.ErrorIs(t, err, registry.ErrInvalidState)
	assert.Equal(t, 1, f.processor.calls)
}

// Сбой пайплайна оставляет сессию в failed с непустым сообщением,
// никогда не в processing
func TestProcessSessionFailureLandsTerminal(t *testing.T) {
	f := newFixture(t)
	session, _ := f.svc.UploadVideo([]byte("fake"), "store.mp4")

	f.processor.err = errors.New("zero decodable frames")

	_, err := f.svc.ProcessSession(context.Background(), session.SessionID, models.DefaultTrackingRequest())
	require.Error(t, err)

	got, _ := f.svc.Session(session.SessionID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.Nil(t, got.Result)
}

func TestProcessSessionUnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessSession(context.Background(), "missing", models.DefaultTrackingRequest())
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestProcessSessionInvalidRequest(t *testing.T) {
	f := newFixture(t)
	session, _ := f.svc.UploadVideo([]byte("fake"), "store.mp4")

	bad := models.TrackingRequest{ConfidenceThreshold: 0.01, MaxTracks: 100}
	_, err := f.svc.ProcessSession(context.Background(), session.SessionID, bad)
	require.Error(t, err)

	// Валидация не должна трогать статус сессии
	got, _ := f.svc.Session(session.SessionID)
	assert.Equal(t, models.StatusUploaded, got.Status)
}

func TestProcessDirect(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ProcessDirect(context.Background(), []byte("fake"), "clip.mp4", models.DefaultTrackingRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)

	// Сессия не регистрируется
	sessions, _ := f.registry.List()
	assert.Empty(t, sessions)

	// Временный файл удален после обработки
	_, statErr := os.Stat(f.processor.lastPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessDirectCleansUpOnFailure(t *testing.T) {
	f := newFixture(t)
	f.processor.err = errors.New("inference down")

	_, err := f.svc.ProcessDirect(context.Background(), []byte("fake"), "clip.mp4", models.DefaultTrackingRequest())
	require.Error(t, err)

	_, statErr := os.Stat(f.processor.lastPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessDirectUnsupportedFormat(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessDirect(context.Background(), []byte("fake"), "clip.txt", models.DefaultTrackingRequest())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, 0, f.processor.calls)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)

	first, _ := f.svc.UploadVideo([]byte("fake"), "a.mp4")
	second, _ := f.svc.UploadVideo([]byte("fake"), "b.mp4")
	f.svc.UploadVideo([]byte("fake"), "c.mp4")

	_, err := f.svc.ProcessSession(context.Background(), first.SessionID, models.DefaultTrackingRequest())
	require.NoError(t, err)

	f.processor.err = errors.New("boom")
	f.svc.ProcessSession(context.Background(), second.SessionID, models.DefaultTrackingRequest())

	summary, err := f.svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSessions)
	assert.Equal(t, 0, summary.ActiveSessions)
	assert.Equal(t, 1, summary.CompletedSessions)
	assert.Equal(t, 1, summary.FailedSessions)
}

func TestCheckHealth(t *testing.T) {
	f := newFixture(t)

	health := f.svc.CheckHealth()
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.DetectorReady)

	svc := NewTrackingService(f.registry, f.processor, f.opener, notReadyDetector{}, f.dir, 100, quietLogger())
	health = svc.CheckHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.False(t, health.DetectorReady)
}

func TestValidateFormat(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.svc.ValidateFormat("a.webm"))
	assert.False(t, f.svc.ValidateFormat("a.gif"))
	assert.Len(t, f.svc.SupportedFormats(), 6)
}
