package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"spielebasar/internal/config"
	"spielebasar/internal/opslog"
	"spielebasar/internal/repository"
	"spielebasar/internal/service"
)

type RouterDeps struct {
	Config    config.Config
	DB        *gorm.DB
	Repo      repository.Repository
	Scheduler SyncScheduler
	Settings  *service.SystemSettingsService
	OpsLog    *opslog.Client
	Logger    *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(RequireBearer(d.Config.Auth))
	engine.Use(opslog.InjectMiddleware(d.OpsLog))
	engine.Use(WriteAudit(d.OpsLog, d.Logger))

	(&HealthHandler{DB: d.DB}).Register(engine)
	RegisterDocs(engine)
	(&SyncHandler{Scheduler: d.Scheduler, Repo: d.Repo}).Register(engine)
	(&ClubHandler{Repo: d.Repo}).Register(engine)
	(&SettingsHandler{Settings: d.Settings}).Register(engine)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return engine
}
