package config

import (
	"time"

	"github.com/spf13/viper"
	pkgconfig "github.com/vaultkeeperirl-design/Beacon-sub000/pkg/config"
)

type Config struct {
	Server      ServerConfig
	WebSocket   WebSocketConfig
	Mesh        MeshConfig
	Chat        ChatConfig
	Coordinator CoordinatorConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Log         LogConfig
	Accounts    AccountsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type MeshConfig struct {
	MaxChildren int `mapstructure:"max_children"`
}

type ChatConfig struct {
	RefillInterval time.Duration `mapstructure:"refill_interval"`
	MaxLength      int           `mapstructure:"max_length"`
	CensoredWords  []string      `mapstructure:"censored_words"`
	CensorChar     string        `mapstructure:"censor_char"`
}

type CoordinatorConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig is optional. An empty address disables the owner cache.
type RedisConfig struct {
	Address       string        `mapstructure:"address"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	OwnerCacheTTL time.Duration `mapstructure:"owner_cache_ttl"`
}

// KafkaConfig is optional. Empty brokers disable lifecycle events.
type KafkaConfig struct {
	Brokers    string
	Topic      string
	Partitions int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type AccountsConfig struct {
	Seed []SeedAccount `mapstructure:"seed"`
}

// SeedAccount is created on startup when missing. Development only.
type SeedAccount struct {
	Username  string `mapstructure:"username"`
	ChannelID string `mapstructure:"channel_id"`
	Balance   int64  `mapstructure:"balance"`
}

func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads config.yaml from dir, falling back to defaults and env.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config", "BEACON")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("mesh.max_children", 3)
	v.SetDefault("chat.refill_interval", "500ms")
	v.SetDefault("chat.max_length", 500)
	v.SetDefault("chat.censored_words", []string{})
	v.SetDefault("chat.censor_char", "*")
	v.SetDefault("coordinator.queue_size", 1024)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "beacon")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/beacon.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.owner_cache_ttl", "5m")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "broadcast-events")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_BROADCAST_TOPIC")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Chat.RefillInterval = parseDuration(v, "chat.refill_interval", 500*time.Millisecond)
	cfg.Redis.OwnerCacheTTL = parseDuration(v, "redis.owner_cache_ttl", 5*time.Minute)

	if cfg.Mesh.MaxChildren < 1 {
		cfg.Mesh.MaxChildren = 1
	}
	if cfg.Coordinator.QueueSize < 1 {
		cfg.Coordinator.QueueSize = 1
	}

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
