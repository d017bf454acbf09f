package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"person-tracker-go/internal/video"
)

// RemoteDetector клиент внешнего сервиса детекции персон.
// Сервис принимает кадр и порог уверенности, возвращает детекции
// уже отфильтрованные по классу "персона".
type RemoteDetector struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewRemoteDetector создает новый клиент для внешнего сервиса детекции
func NewRemoteDetector(baseURL string, timeout time.Duration, logger *logrus.Logger) *RemoteDetector {
	return &RemoteDetector{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// detectResponse структура ответа сервиса детекции
type detectResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Detections []struct {
		X1    float64 `json:"x1"`
		Y1    float64 `json:"y1"`
		X2    float64 `json:"x2"`
		Y2    float64 `json:"y2"`
		Score float64 `json:"score"`
	} `json:"detections"`
}

// Detect отправляет кадр на детекцию во внешний сервис
func (c *RemoteDetector) Detect(frame video.Frame, confidenceThreshold float64) ([]Detection, error) {
	// Создаем multipart form-data с кадром в формате JPEG
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	frameWriter, err := writer.CreateFormFile("frame", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form field for frame: %w", err)
	}

	if err := encodeFrameJPEG(frameWriter, frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	if err := writer.WriteField("confidence_threshold", fmt.Sprintf("%.3f", confidenceThreshold)); err != nil {
		return nil, fmt.Errorf("failed to write confidence_threshold: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/detect", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResponse detectResponse
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	detections := make([]Detection, 0, len(apiResponse.Detections))
	for _, d := range apiResponse.Detections {
		detections = append(detections, Detection{
			X1:    d.X1,
			Y1:    d.Y1,
			X2:    d.X2,
			Y2:    d.Y2,
			Score: d.Score,
		})
	}

	return detections, nil
}

// Ready проверяет доступность внешнего сервиса детекции
func (c *RemoteDetector) Ready() bool {
	url := fmt.Sprintf("%s/health", c.baseURL)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		c.logger.Debugf("Сервис детекции недоступен: %v", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close для удаленного детектора освобождать нечего
func (c *RemoteDetector) Close() error {
	return nil
}

// encodeFrameJPEG кодирует BGR кадр в JPEG
func encodeFrameJPEG(w io.Writer, frame video.Frame) error {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			src := (y*frame.Width + x) * 3
			dst := img.PixOffset(x, y)
			// BGR -> RGBA
			img.Pix[dst] = frame.Data[src+2]
			img.Pix[dst+1] = frame.Data[src+1]
			img.Pix[dst+2] = frame.Data[src]
			img.Pix[dst+3] = 0xff
		}
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
}
