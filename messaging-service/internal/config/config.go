package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/quy-trach/TaskManagement-sub000/pkg/config"
	"github.com/quy-trach/TaskManagement-sub000/pkg/database"
	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
	"github.com/quy-trach/TaskManagement-sub000/pkg/pubsub"
	"github.com/quy-trach/TaskManagement-sub000/pkg/storage"
)

type Config struct {
	InstanceID string `mapstructure:"instance_id"`
	Server     ServerConfig
	Realtime   RealtimeConfig
	WebSocket  WebSocketConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	PubSub     pubsub.Config `mapstructure:"pubsub"`
	JWT        JWTConfig
	Storage    StorageConfig
	IDs        IDConfig `mapstructure:"ids"`
	Messaging  MessagingConfig
	Log        log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type RealtimeConfig struct {
	Host              string
	Port              int
	EnforceMembership bool `mapstructure:"enforce_membership"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
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
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type StorageConfig struct {
	storage.Config `mapstructure:",squash"`
	URLTTL         time.Duration `mapstructure:"url_ttl"`
}

// IDConfig selects the identifier scheme per entity.
type IDConfig struct {
	Message      string
	Notification string
	Conversation string
	Connection   string
	Event        string
}

type MessagingConfig struct {
	PageSize        int `mapstructure:"page_size"`
	ResolveAttempts int `mapstructure:"resolve_attempts"`
	PreviewLength   int `mapstructure:"preview_length"`
	MaxContentRunes int `mapstructure:"max_content_runes"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "local"
	}

	// Set defaults
	v.SetDefault("instance_id", hostname)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("realtime.host", "0.0.0.0")
	v.SetDefault("realtime.port", 8091)
	v.SetDefault("realtime.enforce_membership", false)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "task_tracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/messaging.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "messaging:user:")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("pubsub.driver", "memory")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "task-tracker")
	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.local.base_path", "./data/files")
	v.SetDefault("storage.local.base_url", "/files")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.url_ttl", "15m")
	v.SetDefault("ids.message", "ulid")
	v.SetDefault("ids.notification", "ulid")
	v.SetDefault("ids.conversation", "uuid")
	v.SetDefault("ids.connection", "ksuid")
	v.SetDefault("ids.event", "nanoid")
	v.SetDefault("messaging.page_size", 20)
	v.SetDefault("messaging.resolve_attempts", 3)
	v.SetDefault("messaging.preview_length", 80)
	v.SetDefault("messaging.max_content_runes", 4000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "messaging-service")

	// Bind environment variables
	v.BindEnv("instance_id", "INSTANCE_ID")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("realtime.port", "REALTIME_PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.issuer", "JWT_ISSUER")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 5*time.Minute)
	cfg.Storage.URLTTL = parseDuration(v, "storage.url_ttl", 15*time.Minute)
	cfg.PubSub.Redis.ReadTimeout = parseDuration(v, "pubsub.redis.read_timeout", 3*time.Second)
	cfg.PubSub.Redis.WriteTimeout = parseDuration(v, "pubsub.redis.write_timeout", 3*time.Second)

	// Every instance needs its own consumer group so each relay sees every event.
	if cfg.PubSub.Kafka.GroupID == "" {
		cfg.PubSub.Kafka.GroupID = "messaging-relay-" + cfg.InstanceID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Messaging.PageSize <= 0 {
		return fmt.Errorf("messaging.page_size must be positive, got %d", c.Messaging.PageSize)
	}
	if c.Messaging.ResolveAttempts < 1 || c.Messaging.ResolveAttempts > 3 {
		return fmt.Errorf("messaging.resolve_attempts must be between 1 and 3, got %d", c.Messaging.ResolveAttempts)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket.send_buffer must be positive, got %d", c.WebSocket.SendBuffer)
	}
	return nil
}

// DatabaseOptions converts the service config to pkg/database options.
func (c DatabaseConfig) DatabaseOptions() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogLevel:        c.LogLevel,
		SlowThreshold:   200 * time.Millisecond,
	}
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
