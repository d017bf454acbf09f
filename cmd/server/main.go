package main

import (
	"fmt"
	"net/http"
	"time"

	"person-tracker-go/internal/config"
	"person-tracker-go/internal/database"
	"person-tracker-go/internal/detector"
	"person-tracker-go/internal/handler"
	"person-tracker-go/internal/pipeline"
	"person-tracker-go/internal/registry"
	"person-tracker-go/internal/service"
	"person-tracker-go/internal/tracker"
	"person-tracker-go/internal/video"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Person Tracker API Server")

	// Получаем конфигурацию из переменных окружения
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Выбираем реестр сессий: по умолчанию в памяти,
	// с БД - постоянное хранение в PostgreSQL
	var sessionRegistry registry.Registry
	if cfg.Database.Enabled {
		logger.Info("Подключение к базе данных...")
		if err := database.Connect(); err != nil {
			logger.Fatalf("Ошибка подключения к базе данных: %v", err)
		}

		logger.Info("Выполнение миграций базы данных...")
		if err := database.Migrate(); err != nil {
			logger.Fatalf("Ошибка выполнения миграций: %v", err)
		}

		if err := database.HealthCheck(); err != nil {
			logger.Fatalf("База данных недоступна: %v", err)
		}

		logger.Info("База данных успешно подключена и готова к работе")
		sessionRegistry = registry.NewGormRegistry(database.DB)
	} else {
		logger.Info("Используем реестр сессий в памяти")
		sessionRegistry = registry.NewMemoryRegistry()
	}

	// Инициализируем детектор персон
	personDetector, err := buildDetector(cfg, logger)
	if err != nil {
		logger.Fatalf("Ошибка инициализации детектора: %v", err)
	}
	defer personDetector.Close()

	// Инициализируем пайплайн: детектор общий,
	// трекер создается заново на каждый запуск
	opener := video.NewFileOpener()
	trackingPipeline := pipeline.New(opener, personDetector, func() tracker.Tracker {
		return tracker.NewIOUTracker()
	}, logger)

	// Инициализируем сервисы
	trackingService := service.NewTrackingService(
		sessionRegistry,
		trackingPipeline,
		opener,
		personDetector,
		cfg.Upload.Dir,
		cfg.Upload.MaxBytes,
		logger,
	)

	// Инициализируем обработчики
	trackingHandler := handler.NewTrackingHandler(trackingService, logger)

	// Настраиваем Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Регистрируем маршруты
	trackingHandler.RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Person Tracker API Server",
			"version": service.Version,
			"status":  "running",
		})
	})

	// Запускаем сервер
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Сервер запущен на порту %d", cfg.Server.Port)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1/tracking", cfg.Server.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// buildDetector создает детектор персон по настройкам
func buildDetector(cfg *config.Config, logger *logrus.Logger) (detector.Detector, error) {
	switch cfg.Detector.Backend {
	case "remote":
		logger.Infof("Используем внешний сервис детекции: %s", cfg.Detector.RemoteURL)
		timeout := time.Duration(cfg.Detector.Timeout) * time.Second
		return detector.NewRemoteDetector(cfg.Detector.RemoteURL, timeout, logger), nil
	case "dnn":
		return detector.NewDNNDetector(cfg.Detector.ModelPath, cfg.Detector.ConfigPath, logger)
	default:
		return nil, fmt.Errorf("unknown detector backend: %s", cfg.Detector.Backend)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
