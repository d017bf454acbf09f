package tracker

import (
	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/video"
)

// Observation текущее положение одного живого трека после обновления
type Observation struct {
	TrackID int     // Постоянный ID трека в рамках одного запуска
	X1      float64 // Координаты ограничивающего прямоугольника
	Y1      float64
	X2      float64
	Y2      float64
	Score   float64 // Уверенность трека (0-1)
}

// Tracker сопровождение персон между кадрами.
// Трекер хранит состояние (живые треки, счетчик ID), поэтому один экземпляр
// нельзя разделять между двумя параллельными запусками пайплайна:
// каждый запуск владеет своим экземпляром на все время обработки.
// Reset обязателен перед началом новой последовательности кадров.
type Tracker interface {
	Reset()
	Update(detections []detector.Detection, frame video.Frame) []Observation
}

// Factory создает новый экземпляр трекера для одного запуска пайплайна
type Factory func() Tracker
