package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // gin/zap 运行模式: debug | release
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	// Worker: 外部生成服务（场景预览生成），只返回媒体引用
	Worker struct {
		Addr string `yaml:"addr"`
	} `yaml:"worker"`
	// Compositor: 外部合成引擎，接收编译好的合成图
	Compositor struct {
		Addr string `yaml:"addr"`
	} `yaml:"compositor"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		Domain    string `yaml:"domain"`
	} `yaml:"minio"`
	// Store: 项目文档持久化后端
	Store struct {
		Backend string `yaml:"backend"` // mysql | file
		Dir     string `yaml:"dir"`     // backend=file 时的项目文档目录
	} `yaml:"store"`
	Editor struct {
		MaxUndoSteps       int     `yaml:"max_undo_steps"`
		MinSceneContent    float64 `yaml:"min_scene_content"`    // 剪裁后至少保留的内容秒数
		DefaultDuration    float64 `yaml:"default_duration"`     // 新场景默认原始时长
		DefaultTransition  float64 `yaml:"default_transition"`   // 默认转场时长
		WorkerConcurrency  int     `yaml:"worker_concurrency"`   // asynq 消费并发
		ExternalMaxRetries int     `yaml:"external_max_retries"` // 外部服务重试次数
	} `yaml:"editor"`
}

var AppConfig *Config

func InitConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("配置文件读取失败: %v", err)
	}
	defer f.Close()
	decoder := yaml.NewDecoder(f)
	AppConfig = &Config{}
	if err := decoder.Decode(AppConfig); err != nil {
		log.Fatalf("配置文件解析失败: %v", err)
	}
	applyDefaults(AppConfig)
}

func applyDefaults(c *Config) {
	if c.Editor.MaxUndoSteps <= 0 {
		c.Editor.MaxUndoSteps = 100
	}
	if c.Editor.MinSceneContent <= 0 {
		c.Editor.MinSceneContent = 0.5
	}
	if c.Editor.DefaultDuration <= 0 {
		c.Editor.DefaultDuration = 5.0
	}
	if c.Editor.DefaultTransition <= 0 {
		c.Editor.DefaultTransition = 0.5
	}
	if c.Editor.WorkerConcurrency <= 0 {
		c.Editor.WorkerConcurrency = 5
	}
	if c.Editor.ExternalMaxRetries <= 0 {
		c.Editor.ExternalMaxRetries = 3
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "mysql"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "data/projects/timelines"
	}
}
