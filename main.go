package main

import (
	"TimelineStudio-server/config"
	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"
	"TimelineStudio-server/routers"
	"TimelineStudio-server/routers/api"
	"TimelineStudio-server/service"

	"github.com/gin-gonic/gin"
)

func main() {
	config.InitConfig()

	log, err := logger.New(config.AppConfig.Server.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("服务启动", "port", config.AppConfig.Server.Port)

	if config.AppConfig.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 存储后端：mysql 用 GORM 文档表，file 用本地 JSON 目录
	var repo models.DocRepo
	switch config.AppConfig.Store.Backend {
	case "file":
		repo, err = models.NewFileRepo(config.AppConfig.Store.Dir)
		if err != nil {
			log.Fatal("文件存储初始化失败", "err", err)
		}
	default:
		db, err := models.InitDB()
		if err != nil {
			log.Fatal("数据库初始化失败", "err", err)
		}
		repo = models.NewGormRepo(db)
	}

	store := models.NewStore(repo, log)
	if err := store.LoadAll(); err != nil {
		log.Fatal("项目文档加载失败", "err", err)
	}
	log.Info("项目文档已加载", "count", len(store.ListProjects()))

	service.InitQueue()
	service.InitMinIO()

	tasks := models.NewTaskRegistry()
	editor := service.NewEditor(store, log, service.EditorOptionsFromConfig())

	processor := service.NewProcessor(store, tasks, log)
	processor.StartProcessor(config.AppConfig.Editor.WorkerConcurrency)

	h := api.NewHandlers(store, editor, tasks, log)
	r := routers.InitRouter(h)
	if err := r.Run(config.AppConfig.Server.Port); err != nil {
		log.Fatal("HTTP 服务退出", "err", err)
	}
}
