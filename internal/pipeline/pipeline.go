package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/tracker"
	"person-tracker-go/internal/video"
	"person-tracker-go/pkg/models"
)

// ProcessingError ошибка во время цикла обработки кадров.
// Несет номер кадра, на котором обработка прервалась.
type ProcessingError struct {
	Frame int
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("video processing failed at frame %d: %v", e.Frame, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Pipeline покадровый конвейер: декодирование -> детекция -> трекинг.
// Детектор разделяется между запусками (stateless для вызывающего),
// трекер создается фабрикой заново на каждый запуск.
type Pipeline struct {
	opener     video.Opener
	detector   detector.Detector
	newTracker tracker.Factory
	logger     *logrus.Logger
}

// New создает новый пайплайн трекинга персон
func New(opener video.Opener, det detector.Detector, newTracker tracker.Factory, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		opener:     opener,
		detector:   det,
		newTracker: newTracker,
		logger:     logger,
	}
}

// Run обрабатывает одно видео целиком и собирает результат трекинга.
// Ошибка адаптера или декодера прерывает запуск с ProcessingError;
// превышение лимита наблюдений (MaxTracks*10) останавливает цикл
// досрочно без ошибки - это частичный результат, не сбой.
func (p *Pipeline) Run(ctx context.Context, videoPath, sessionID string, req models.TrackingRequest) (*models.TrackingResult, error) {
	source, err := p.opener.Open(videoPath)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	meta := source.Metadata()
	if err := video.Validate(meta); err != nil {
		return nil, err
	}

	p.logger.Infof("Начинаем обработку видео %s: %d кадров, %.1f fps, %s",
		filepath.Base(videoPath), meta.TotalFrames, meta.FPS, meta.Resolution())

	// Каждый запуск владеет собственным трекером
	trk := p.newTracker()
	trk.Reset()

	maxObservations := req.MaxObservations()
	var tracks []models.PersonTrack
	frameNumber := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil, &ProcessingError{Frame: frameNumber, Err: ctx.Err()}
		default:
		}

		frame, err := source.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ProcessingError{Frame: frameNumber, Err: err}
		}

		frameNumber++
		timestamp := frameTimestamp(frameNumber, meta.FPS)

		detections, err := p.detector.Detect(frame, req.ConfidenceThreshold)
		if err != nil {
			return nil, &ProcessingError{Frame: frameNumber, Err: err}
		}

		if len(detections) > 0 {
			for _, obs := range trk.Update(detections, frame) {
				tracks = append(tracks, models.PersonTrack{
					TrackID: obs.TrackID,
					BBox: models.BoundingBox{
						X1:         obs.X1,
						Y1:         obs.Y1,
						X2:         obs.X2,
						Y2:         obs.Y2,
						Confidence: obs.Score,
					},
					FrameNumber: frameNumber,
					Timestamp:   timestamp,
					Confidence:  obs.Score,
				})
			}
		}

		// Предохранитель от неограниченного роста памяти
		// на длинных или враждебных видео
		if len(tracks) > maxObservations {
			p.logger.Warnf("Достигнут лимит наблюдений (%d) на кадре %d, останавливаем обработку досрочно",
				maxObservations, frameNumber)
			break
		}
	}

	processingTime := time.Since(startTime)

	p.logger.Infof("Обработка завершена: %d кадров, %d наблюдений за %.2f с",
		frameNumber, len(tracks), processingTime.Seconds())

	return &models.TrackingResult{
		SessionID: sessionID,
		VideoInfo: models.VideoInfo{
			Filename:    filepath.Base(videoPath),
			Duration:    meta.Duration(),
			Resolution:  meta.Resolution(),
			FPS:         meta.FPS,
			TotalFrames: meta.TotalFrames,
		},
		Tracks:         tracks,
		TotalFrames:    frameNumber,
		ProcessingTime: processingTime.Seconds(),
		FPS:            meta.FPS,
	}, nil
}

// frameTimestamp вычисляет время кадра в секундах.
// Для видео без валидного fps используется запасная частота 30 кадров/с,
// точного совпадения с реальным временем в этом случае не гарантируется.
func frameTimestamp(frameNumber int, fps float64) float64 {
	if fps > 0 {
		return float64(frameNumber) / fps
	}
	return float64(frameNumber) / video.FallbackFPS
}
