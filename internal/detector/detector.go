package detector

import (
	"errors"

	"person-tracker-go/internal/video"
)

// ErrModelUnavailable модель детекции не загружена или недоступна
var ErrModelUnavailable = errors.New("detection model unavailable")

// Detection нормализованная запись одной детекции персоны [x1,y1,x2,y2,score]
type Detection struct {
	X1    float64
	Y1    float64
	X2    float64
	Y2    float64
	Score float64
}

// Detector детектор персон на одном кадре.
// Detect возвращает детекции уже отфильтрованные по классу "персона":
// фильтрация по индексу класса - ответственность адаптера, не пайплайна.
// Пустой результат - валидный ответ (персон не найдено), не ошибка.
// Реализации должны быть безопасны для конкурентного чтения:
// один детектор разделяется между параллельными запусками пайплайна.
type Detector interface {
	Detect(frame video.Frame, confidenceThreshold float64) ([]Detection, error)
	Ready() bool
	Close() error
}
