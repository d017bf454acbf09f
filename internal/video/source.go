package video

import (
	"errors"
	"fmt"
)

// MaxDurationSeconds максимальная допустимая длительность видео.
// Константа дизайна, не настраивается per-request.
const MaxDurationSeconds = 600.0

// FallbackFPS запасная частота кадров для видео без валидного fps
const FallbackFPS = 30.0

var (
	// ErrOpen контейнер не удалось открыть или демультиплексировать
	ErrOpen = errors.New("cannot open video")
	// ErrValidation видео открылось, но не прошло базовую проверку
	ErrValidation = errors.New("video validation failed")
)

// Metadata метаданные видео контейнера
type Metadata struct {
	FPS         float64 // Частота кадров
	TotalFrames int     // Количество кадров по данным контейнера
	Width       int     // Ширина кадра в пикселях
	Height      int     // Высота кадра в пикселях
}

// Duration вычисляет длительность видео в секундах
func (m Metadata) Duration() float64 {
	if m.FPS <= 0 {
		return 0
	}
	return float64(m.TotalFrames) / m.FPS
}

// Resolution возвращает разрешение в формате WxH
func (m Metadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Frame один декодированный кадр в формате BGR
type Frame struct {
	Data   []byte // Пиксели BGR, построчно
	Width  int
	Height int
}

// Source последовательный доступ к кадрам открытого видео.
// NextFrame возвращает io.EOF после последнего кадра.
type Source interface {
	Metadata() Metadata
	NextFrame() (Frame, error)
	Close() error
}

// Opener открывает видео файл и возвращает источник кадров
type Opener interface {
	Open(path string) (Source, error)
}

// Validate проверяет метаданные видео: нулевое количество кадров,
// некорректный fps и превышение лимита длительности отклоняются сразу
func Validate(meta Metadata) error {
	if meta.TotalFrames <= 0 {
		return fmt.Errorf("%w: no frames in video", ErrValidation)
	}
	if meta.FPS <= 0 {
		return fmt.Errorf("%w: invalid fps %g", ErrValidation, meta.FPS)
	}
	if duration := meta.Duration(); duration > MaxDurationSeconds {
		return fmt.Errorf("%w: video too long (%.1fs, max %.0fs)", ErrValidation, duration, MaxDurationSeconds)
	}
	return nil
}
