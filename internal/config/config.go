package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port int
		Host string
	}
	Upload struct {
		Dir      string
		MaxBytes int64
	}
	Detector struct {
		Backend    string // "dnn" или "remote"
		ModelPath  string
		ConfigPath string
		RemoteURL  string
		Timeout    int // в секундах
	}
	Database struct {
		Enabled bool
	}
	Logging struct {
		Level string
	}
	Environment string
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env подхватывается, если присутствует.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")

	// Конфигурация загрузки видео
	cfg.Upload.Dir = getEnv("UPLOAD_DIR", "uploads/videos")
	cfg.Upload.MaxBytes = int64(getEnvInt("UPLOAD_MAX_MB", 500)) * 1024 * 1024

	// Конфигурация детектора персон
	cfg.Detector.Backend = getEnv("DETECTOR_BACKEND", "dnn")
	cfg.Detector.ModelPath = getEnv("DETECTOR_MODEL_PATH", "models/frozen_inference_graph.pb")
	cfg.Detector.ConfigPath = getEnv("DETECTOR_CONFIG_PATH", "models/ssd_mobilenet_v1_coco.pbtxt")
	cfg.Detector.RemoteURL = getEnv("DETECTOR_REMOTE_URL", "http://localhost:8000")
	cfg.Detector.Timeout = getEnvInt("DETECTOR_TIMEOUT_SECONDS", 300) // 5 минут по умолчанию

	// Конфигурация постоянного хранения сессий
	cfg.Database.Enabled = getEnvBool("DB_ENABLED", false)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	cfg.Environment = getEnv("ENVIRONMENT", "development")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool получает bool значение переменной окружения или возвращает значение по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
