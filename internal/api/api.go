package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/stockplanner/internal/api/handlers"
	"github.com/andresuchdata/stockplanner/internal/api/middleware"
	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/drive"
	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	PlanService *service.PlanService
	Exports     cache.ExportStore
	// Drive is nil unless Google Drive access is configured.
	Drive *drive.Handler
}

type Options struct {
	AllowedOrigins    []string
	BaseConfig        domain.PlanConfig
	MaxConcurrentRuns int64
	MaxUploadBytes    int64
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Filled-Count", "X-Not-Matched-Count", "X-Unmatched-Count"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.PlanService != nil {
			exports := services.Exports
			if exports == nil {
				exports = cache.NewMemoryExportStore(15 * time.Minute)
			}
			planHandler := handlers.NewPlanHandler(services.PlanService, exports, opts.BaseConfig, opts.MaxConcurrentRuns)

			apiGroup.GET("/config/defaults", planHandler.GetDefaults)
			apiGroup.GET("/exports/:token", planHandler.GetExport)

			planGroup := apiGroup.Group("/plan", middleware.BodyLimit(opts.MaxUploadBytes))
			{
				planGroup.POST("", planHandler.CreatePlan)
				planGroup.POST("/master", planHandler.ReplanMaster)
				planGroup.POST("/export", planHandler.ExportPlan)
				planGroup.POST("/fill-template", planHandler.FillTemplate)
				planGroup.POST("/publish", planHandler.PublishPlan)
			}
		}

		if services.Drive != nil {
			// Drive routes live on a gorilla/mux router of their own.
			router.Any("/api/drive/*path", gin.WrapH(services.Drive.Router()))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
