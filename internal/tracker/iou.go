package tracker

import (
	"math"

	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/video"
)

const (
	// defaultIOUThreshold минимальное перекрытие для сопоставления
	// детекции с существующим треком
	defaultIOUThreshold = 0.3
	// defaultMaxMisses сколько кадров подряд трек живет без детекции
	defaultMaxMisses = 30
)

// track внутреннее состояние одного сопровождаемого объекта
type track struct {
	id     int
	x1     float64
	y1     float64
	x2     float64
	y2     float64
	score  float64
	misses int // Кадров подряд без сопоставленной детекции
}

// IOUTracker трекер с жадным сопоставлением детекций по перекрытию (IoU).
// Треку, потерявшему детекцию дольше maxMisses кадров, идентичность не
// возвращается - новая детекция на том же месте получит новый ID.
type IOUTracker struct {
	iouThreshold float64
	maxMisses    int
	tracks       []*track
	nextID       int
}

// NewIOUTracker создает трекер с параметрами по умолчанию
func NewIOUTracker() *IOUTracker {
	return &IOUTracker{
		iouThreshold: defaultIOUThreshold,
		maxMisses:    defaultMaxMisses,
		nextID:       1,
	}
}

// Reset сбрасывает все треки и счетчик ID перед новым видео
func (t *IOUTracker) Reset() {
	t.tracks = nil
	t.nextID = 1
}

// Update сопоставляет детекции кадра с живыми треками.
// Возвращает наблюдения только тех треков, которые получили детекцию
// на текущем кадре.
func (t *IOUTracker) Update(detections []detector.Detection, _ video.Frame) []Observation {
	matched := make([]bool, len(detections))
	var observations []Observation

	// Жадное сопоставление: каждый трек забирает детекцию
	// с максимальным перекрытием
	for _, tr := range t.tracks {
		bestIdx := -1
		bestIOU := t.iouThreshold
		for i, det := range detections {
			if matched[i] {
				continue
			}
			if overlap := iou(tr, det); overlap >= bestIOU {
				bestIOU = overlap
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			tr.misses++
			continue
		}

		det := detections[bestIdx]
		matched[bestIdx] = true
		tr.x1, tr.y1, tr.x2, tr.y2 = det.X1, det.Y1, det.X2, det.Y2
		tr.score = det.Score
		tr.misses = 0

		observations = append(observations, Observation{
			TrackID: tr.id,
			X1:      tr.x1,
			Y1:      tr.y1,
			X2:      tr.x2,
			Y2:      tr.y2,
			Score:   tr.score,
		})
	}

	// Несопоставленные детекции открывают новые треки
	for i, det := range detections {
		if matched[i] {
			continue
		}
		tr := &track{
			id:    t.nextID,
			x1:    det.X1,
			y1:    det.Y1,
			x2:    det.X2,
			y2:    det.Y2,
			score: det.Score,
		}
		t.nextID++
		t.tracks = append(t.tracks, tr)

		observations = append(observations, Observation{
			TrackID: tr.id,
			X1:      tr.x1,
			Y1:      tr.y1,
			X2:      tr.x2,
			Y2:      tr.y2,
			Score:   tr.score,
		})
	}

	// Удаляем треки, просрочившие лимит пропусков
	alive := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.misses <= t.maxMisses {
			alive = append(alive, tr)
		}
	}
	t.tracks = alive

	return observations
}

// iou вычисляет перекрытие трека и детекции (intersection over union)
func iou(tr *track, det detector.Detection) float64 {
	interX1 := math.Max(tr.x1, det.X1)
	interY1 := math.Max(tr.y1, det.Y1)
	interX2 := math.Min(tr.x2, det.X2)
	interY2 := math.Min(tr.y2, det.Y2)

	interW := interX2 - interX1
	interH := interY2 - interY1
	if interW <= 0 || interH <= 0 {
		return 0
	}

	interArea := interW * interH
	trackArea := (tr.x2 - tr.x1) * (tr.y2 - tr.y1)
	detArea := (det.X2 - det.X1) * (det.Y2 - det.Y1)

	union := trackArea + detArea - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
