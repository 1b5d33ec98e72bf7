// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"dealwire/internal/pkg/logger"
)

// Config 是整个进程的配置根。来源优先级：内置默认值 < 本地 YAML < Nacos 配置中心。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type InfraConfig struct {
	MySQL struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		OutboundTopic string   `yaml:"outboundTopic"`
	} `yaml:"kafka"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Zookeeper struct {
		Servers          []string `yaml:"servers"`
		SessionTimeoutMS int      `yaml:"sessionTimeoutMs"`
	} `yaml:"zookeeper"`
	Nacos struct {
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
		DataID      string `yaml:"dataId"`
	} `yaml:"nacos"`
}

type AppConfig struct {
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Publishing PublishingConfig `yaml:"publishing"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Tracking   TrackingConfig   `yaml:"tracking"`
}

type SchedulingConfig struct {
	MaxDealsPerHour int `yaml:"maxDealsPerHour"`
	StaleAfterHours int `yaml:"staleAfterHours"`
}

type PublishingConfig struct {
	BatchSize            int    `yaml:"batchSize"`
	InterJobDelayMS      int    `yaml:"interJobDelayMs"`
	CycleIntervalSeconds int    `yaml:"cycleIntervalSeconds"`
	DeliveryMode         string `yaml:"deliveryMode"` // "kafka" 或 "http"
	CredentialKey        string `yaml:"credentialKey"`
	// AICopyEndpoint 非空时启用外部文案生成服务（失败回退模板）。
	AICopyEndpoint string `yaml:"aiCopyEndpoint"`
}

type CatalogConfig struct {
	UpstreamBaseURL   string `yaml:"upstreamBaseUrl"`
	UpstreamAPIKey    string `yaml:"upstreamApiKey"`
	MaxRetries        int    `yaml:"maxRetries"`
	PacingMS          int    `yaml:"pacingMs"`
	QueueSize         int    `yaml:"queueSize"`
	TTLMinutes        int    `yaml:"ttlMinutes"`
	MonthlyTokenLimit int64  `yaml:"monthlyTokenLimit"`
}

type TrackingConfig struct {
	LeaseTTLHours int `yaml:"leaseTtlHours"`
}

var (
	configMu      sync.RWMutex
	currentConfig Config
)

// GetCurrentConfig 返回当前生效的配置快照。
func GetCurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return currentConfig
}

func setCurrentConfig(cfg Config) {
	configMu.Lock()
	currentConfig = cfg
	configMu.Unlock()
}

// Init 加载配置。必须在任何服务启动之前调用一次。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/dealwire.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logger.L().Fatal().Err(err).Str("path", path).Msg("invalid config file")
		}
	} else {
		logger.L().Warn().Str("path", path).Msg("config file not found, using defaults")
	}

	setCurrentConfig(cfg)

	// 如果配置了 Nacos 配置中心，则拉取远端配置覆盖本地，并监听后续变更。
	if cfg.Infra.Nacos.DataID != "" {
		initRemoteConfig(cfg)
	}
}

func initRemoteConfig(cfg Config) {
	client, err := newNacosConfigClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace)
	if err != nil {
		logger.L().Error().Err(err).Msg("failed to create nacos config client, remote config disabled")
		return
	}
	nacosConfigClient = client

	apply := func(content string) {
		merged := GetCurrentConfig()
		if err := yaml.Unmarshal([]byte(content), &merged); err != nil {
			logger.L().Error().Err(err).Msg("invalid remote config payload, keeping previous config")
			return
		}
		setCurrentConfig(merged)
		logger.L().Info().Msg("config refreshed from nacos")
	}

	content, err := client.GetConfig(cfg.Infra.Nacos.DataID, cfg.Infra.Nacos.Group)
	if err != nil {
		logger.L().Error().Err(err).Msg("failed to fetch remote config")
	} else if content != "" {
		apply(content)
	}

	if err := client.ListenConfig(cfg.Infra.Nacos.DataID, cfg.Infra.Nacos.Group, apply); err != nil {
		logger.L().Error().Err(err).Msg("failed to watch remote config")
	}
}

func defaultConfig() Config {
	var cfg Config
	cfg.Infra.MySQL.Host = "localhost"
	cfg.Infra.MySQL.Port = 3306
	cfg.Infra.MySQL.User = "root"
	cfg.Infra.MySQL.Database = "dealwire"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.OutboundTopic = "outbound-messages"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.Zookeeper.SessionTimeoutMS = 5000
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"

	cfg.App.Scheduling.MaxDealsPerHour = 3
	cfg.App.Scheduling.StaleAfterHours = 24
	cfg.App.Publishing.BatchSize = 10
	cfg.App.Publishing.InterJobDelayMS = 2000
	cfg.App.Publishing.CycleIntervalSeconds = 60
	cfg.App.Publishing.DeliveryMode = "http"
	cfg.App.Catalog.MaxRetries = 3
	cfg.App.Catalog.PacingMS = 1500
	cfg.App.Catalog.QueueSize = 256
	cfg.App.Catalog.TTLMinutes = 1440
	cfg.App.Catalog.MonthlyTokenLimit = 1000
	cfg.App.Tracking.LeaseTTLHours = 24
	return cfg
}
