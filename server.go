package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ateliernord/finops_backend/config"
	"github.com/ateliernord/finops_backend/invoiceai"
	"github.com/ateliernord/finops_backend/models"
	"github.com/ateliernord/finops_backend/qontosync"
	"github.com/ateliernord/finops_backend/utils"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("FINOPS_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	qonto, err := qontosync.NewClient()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "qonto"}).Fatal(err)
	}

	queue := invoiceai.NewCallQueue(
		time.Duration(config.IntFromEnv("AI_MIN_CALL_INTERVAL_MS", 15000))*time.Millisecond,
		logger,
	)
	defer queue.Close()

	var classifier *invoiceai.Classifier
	invoker, err := invoiceai.NewAnthropicInvoker(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_MODEL"))
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "anthropic"}).Warn("document model disabled: " + err.Error())
	} else {
		classifier = invoiceai.NewClassifier(queue, invoker, logger)
	}

	scheduler := qontosync.NewScheduler(logger)
	defer scheduler.Close()

	// DB and Redis connect after the server starts listening; the readiness
	// gate rejects traffic until both are up, so the service fields can be
	// filled in then.
	service := qontosync.NewSyncService(nil, qonto, classifier, scheduler, nil, logger)
	handlers := &qontosync.Handlers{Service: service}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	handlers.RegisterRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	service.DB = db
	service.Locker = config.GetRedisLock()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	if spec := strings.TrimSpace(os.Getenv("AUTO_SYNC_CRON")); spec != "" {
		scheduledSyncs := cron.New()
		_, err := scheduledSyncs.AddFunc(spec, func() {
			if _, err := service.RunSync(context.Background(), models.SyncScopeAll, models.SyncTriggeredScheduled); err != nil {
				config.LogError(logger, "server.go", "main", "ScheduledSync", spec, err)
			}
		})
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "cron", "spec": spec}).Fatal(err)
		}
		scheduledSyncs.Start()
		defer scheduledSyncs.Stop()
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
