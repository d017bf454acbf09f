package detector

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"person-tracker-go/internal/video"
)

// personClassID индекс класса "персона" в COCO разметке MobileNet SSD
const personClassID = 1

// inputSize размер входа сети детекции
const inputSize = 300

// DNNDetector детектор персон на базе DNN модуля OpenCV (MobileNet SSD)
type DNNDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	loaded bool
	logger *logrus.Logger
}

// NewDNNDetector загружает модель детекции из файлов весов и конфигурации
func NewDNNDetector(modelPath, configPath string, logger *logrus.Logger) (*DNNDetector, error) {
	logger.Infof("Загружаем модель детекции: %s", modelPath)

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: failed to read net from %s", ErrModelUnavailable, modelPath)
	}

	logger.Info("Модель детекции персон успешно загружена")
	return &DNNDetector{net: net, loaded: true, logger: logger}, nil
}

// Detect выполняет детекцию персон на кадре.
// Сеть OpenCV не потокобезопасна, поэтому прямой проход сериализуется мьютексом.
func (d *DNNDetector) Detect(frame video.Frame, confidenceThreshold float64) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return nil, ErrModelUnavailable
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to build mat from frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(inputSize, inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// Выход сети: N записей по 7 значений
	// [batchID, classID, confidence, left, top, right, bottom]
	var detections []Detection
	rows := output.Total() / 7

	imgWidth := float64(frame.Width)
	imgHeight := float64(frame.Height)

	for i := 0; i < rows; i++ {
		base := i * 7
		score := float64(output.GetFloatAt(0, base+2))
		if score < confidenceThreshold {
			continue
		}

		// Фильтруем только класс "персона"
		classID := int(output.GetFloatAt(0, base+1))
		if classID != personClassID {
			continue
		}

		// Координаты нормализованы в 0-1, переводим в пиксели
		detections = append(detections, Detection{
			X1:    float64(output.GetFloatAt(0, base+3)) * imgWidth,
			Y1:    float64(output.GetFloatAt(0, base+4)) * imgHeight,
			X2:    float64(output.GetFloatAt(0, base+5)) * imgWidth,
			Y2:    float64(output.GetFloatAt(0, base+6)) * imgHeight,
			Score: score,
		})
	}

	return detections, nil
}

// Ready сообщает, загружена ли модель
func (d *DNNDetector) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded && !d.net.Empty()
}

// Close освобождает ресурсы сети
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil
	}
	d.loaded = false
	return d.net.Close()
}
