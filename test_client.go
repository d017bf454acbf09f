package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const baseURL = "http://localhost:8080/api/v1/tracking"

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	// Если есть тестовое видео, загружаем его и запускаем обработку
	if len(os.Args) > 1 {
		videoPath := os.Args[1]
		fmt.Printf("Загружаем видео %s...\n", videoPath)

		if err := testTracking(videoPath); err != nil {
			fmt.Printf("Ошибка при тестировании трекинга: %v\n", err)
		}
	} else {
		fmt.Println("Для тестирования трекинга запустите: go run test_client.go <путь_к_видео>")
	}
}

func testTracking(videoPath string) error {
	// Читаем видео файл
	videoData, err := os.ReadFile(videoPath)
	if err != nil {
		return fmt.Errorf("ошибка чтения видео файла: %w", err)
	}

	// Загружаем видео и получаем сессию
	sessionID, err := uploadVideo(videoPath, videoData)
	if err != nil {
		return err
	}
	fmt.Printf("Сессия создана: %s\n", sessionID)

	// Запускаем обработку
	fmt.Println("Запускаем обработку...")
	start := time.Now()

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	writer.WriteField("confidence_threshold", "0.25")
	writer.WriteField("max_tracks", "100")
	writer.Close()

	resp, err := http.Post(
		fmt.Sprintf("%s/process/%s", baseURL, sessionID),
		writer.FormDataContentType(),
		&form,
	)
	if err != nil {
		return fmt.Errorf("ошибка запуска обработки: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	fmt.Printf("Обработка завершена за %v (статус %d):\n%s\n", time.Since(start), resp.StatusCode, string(body))
	return nil
}

func uploadVideo(videoPath string, videoData []byte) (string, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	fileWriter, err := writer.CreateFormFile("video", filepath.Base(videoPath))
	if err != nil {
		return "", fmt.Errorf("ошибка создания form field: %w", err)
	}
	if _, err := fileWriter.Write(videoData); err != nil {
		return "", fmt.Errorf("ошибка записи видео данных: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	resp, err := http.Post(baseURL+"/upload", writer.FormDataContentType(), &form)
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки видео: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("сервер вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var session struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа: %w", err)
	}

	return session.SessionID, nil
}
