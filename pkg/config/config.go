package config

import (
	"os"
	"strconv"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Store    StoreConfig    `yaml:"store"`
	Identity IdentityConfig `yaml:"identity"`
	Presence PresenceConfig `yaml:"presence"`
	Push     PushConfig     `yaml:"push"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	JWTSecret string `yaml:"jwt_secret"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
	GRPC GRPCConfig `yaml:"grpc"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Network string `yaml:"network"`
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// GRPCConfig gRPC服务配置
type GRPCConfig struct {
	Network string `yaml:"network"`
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	PushTopic string   `yaml:"push_topic"`
}

// StoreConfig 远程JSON存储配置
type StoreConfig struct {
	BaseURL        string   `yaml:"base_url"`        // 远程存储根地址
	Scopes         []string `yaml:"scopes"`          // 访问令牌作用域
	TimeoutSeconds int      `yaml:"timeout_seconds"` // 单次HTTP往返超时
}

// IdentityConfig 服务身份配置（签发自定义令牌使用）
type IdentityConfig struct {
	ClientEmail    string `yaml:"client_email"`     // 服务账号邮箱
	PrivateKeyFile string `yaml:"private_key_file"` // RS256私钥PEM文件
	Audience       string `yaml:"audience"`         // identity-toolkit受众地址
	ProjectID      string `yaml:"project_id"`
}

// PresenceConfig 在线状态配置
type PresenceConfig struct {
	LocalCacheTTLMinutes  int `yaml:"local_cache_ttl_minutes"`  // 进程内缓存生命周期
	SharedCacheTTLMinutes int `yaml:"shared_cache_ttl_minutes"` // Redis缓存生命周期
}

// PushConfig 推送配置
type PushConfig struct {
	Endpoint          string `yaml:"endpoint"`            // 推送下发API地址
	SessionCutoffDays int    `yaml:"session_cutoff_days"` // 会话保留窗口（天）
	EnforceCutoff     bool   `yaml:"enforce_cutoff"`      // 是否真正跳过过期会话
}

// LoadConfig 从环境变量加载配置
func LoadConfig(serviceName string) *Config {
	httpPort := getEnvOrDefault("HTTP_PORT", "21021")
	grpcPort := getEnvOrDefault("GRPC_PORT", "22021")

	return &Config{
		App: AppConfig{
			Name:      serviceName,
			Version:   getEnvOrDefault("APP_VERSION", "1.0.0"),
			JWTSecret: getEnvOrDefault("JWT_SECRET", "gogame-presence"),
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Network: "tcp",
				Addr:    ":" + httpPort,
				Timeout: "30s",
			},
			GRPC: GRPCConfig{
				Network: "tcp",
				Addr:    ":" + grpcPort,
				Timeout: "30s",
			},
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:   []string{getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")},
			PushTopic: getEnvOrDefault("KAFKA_PUSH_TOPIC", "push_events"),
		},
		Store: StoreConfig{
			BaseURL: getEnvOrDefault("STORE_BASE_URL", "https://gogame-presence.firebaseio.com"),
			Scopes: []string{
				"https://www.googleapis.com/auth/firebase.database",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			TimeoutSeconds: getEnvIntOrDefault("STORE_TIMEOUT_SECONDS", 15),
		},
		Identity: IdentityConfig{
			ClientEmail:    getEnvOrDefault("IDENTITY_CLIENT_EMAIL", ""),
			PrivateKeyFile: getEnvOrDefault("IDENTITY_PRIVATE_KEY_FILE", ""),
			Audience: getEnvOrDefault(
				"IDENTITY_AUDIENCE",
				"https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit",
			),
			ProjectID: getEnvOrDefault("IDENTITY_PROJECT_ID", ""),
		},
		Presence: PresenceConfig{
			LocalCacheTTLMinutes:  getEnvIntOrDefault("PRESENCE_LOCAL_TTL_MINUTES", 1),
			SharedCacheTTLMinutes: getEnvIntOrDefault("PRESENCE_SHARED_TTL_MINUTES", 5),
		},
		Push: PushConfig{
			Endpoint:          getEnvOrDefault("PUSH_ENDPOINT", "https://fcm.googleapis.com/v1"),
			SessionCutoffDays: getEnvIntOrDefault("PUSH_SESSION_CUTOFF_DAYS", 7),
			EnforceCutoff:     getEnvOrDefault("PUSH_ENFORCE_CUTOFF", "false") == "true",
		},
	}
}

// getEnvOrDefault 获取环境变量或默认值
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault 获取环境变量整数值或默认值
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
