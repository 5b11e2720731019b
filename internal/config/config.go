package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Драйверы хранилища записей
const (
	StoreDriverAirtable = "airtable"
	StoreDriverPostgres = "postgres"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Airtable  AirtableConfig  `mapstructure:"airtable"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

// StoreConfig выбирает хранилище записей
type StoreConfig struct {
	// Driver: "airtable" (по умолчанию) или "postgres"
	Driver string `mapstructure:"driver"`
}

// AirtableConfig содержит учетные данные и имена таблиц внешнего хранилища
type AirtableConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseID       string        `mapstructure:"base_id"`
	BaseURL      string        `mapstructure:"base_url"`
	QuizTable    string        `mapstructure:"quiz_table"`
	VotesTable   string        `mapstructure:"votes_table"`
	SessionTable string        `mapstructure:"session_table"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: без Redis сервис работает без кеша, с локальными блокировками и без rate limit
	Enabled bool `mapstructure:"enabled"`

	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт)
	Addrs []string `mapstructure:"addrs"`

	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MasterName string `mapstructure:"master_name"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// QuizConfig содержит настройки логики викторины
type QuizConfig struct {
	// DefaultSession используется /active и /next, если сессия не указана
	DefaultSession string `mapstructure:"default_session"`
	// LegacyActiveFlag включает старый режим, где активный вопрос отмечен флажком в каталоге
	LegacyActiveFlag bool          `mapstructure:"legacy_active_flag"`
	CatalogCacheTTL  time.Duration `mapstructure:"catalog_cache_ttl"`
	AdvanceLockTTL   time.Duration `mapstructure:"advance_lock_ttl"`
}

// WebSocketConfig содержит настройки live-событий
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ClusterEnabled bool          `mapstructure:"cluster_enabled"`
	ClusterChannel string        `mapstructure:"cluster_channel"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

// RateLimitConfig содержит ограничение частоты голосов с одного IP
type RateLimitConfig struct {
	VoteMaxRequests int           `mapstructure:"vote_max_requests"`
	VoteWindow      time.Duration `mapstructure:"vote_window"`
}

// AdvanceLockWait возвращает, сколько ждать блокировку сессии, занятую другим экземпляром.
// Переход к следующему вопросу в Airtable делает два запроса, каждый ограничен airtable.timeout.
func (c *Config) AdvanceLockWait() time.Duration {
	wait := c.Quiz.AdvanceLockTTL
	if c.Store.Driver == StoreDriverAirtable && 2*c.Airtable.Timeout > wait {
		wait = 2 * c.Airtable.Timeout
	}
	return wait
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "3000")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.cors_origins", []string{"*"})

	vip.SetDefault("store.driver", StoreDriverAirtable)

	vip.SetDefault("airtable.quiz_table", "Quiz")
	vip.SetDefault("airtable.votes_table", "Votes")
	vip.SetDefault("airtable.session_table", "Session")
	vip.SetDefault("airtable.timeout", 10*time.Second)

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.auto_migrate", true)

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("quiz.default_session", "main")
	vip.SetDefault("quiz.catalog_cache_ttl", 30*time.Second)
	vip.SetDefault("quiz.advance_lock_ttl", 5*time.Second)

	vip.SetDefault("websocket.enabled", true)
	vip.SetDefault("websocket.cluster_channel", "livequiz:events")
	vip.SetDefault("websocket.send_buffer", 64)
	vip.SetDefault("websocket.ping_interval", 27*time.Second)
	vip.SetDefault("websocket.pong_wait", 30*time.Second)
	vip.SetDefault("websocket.write_wait", 10*time.Second)

	vip.SetDefault("rate_limit.vote_max_requests", 30)
	vip.SetDefault("rate_limit.vote_window", time.Minute)
}

func bindEnv(vip *viper.Viper) {
	// Внешнее хранилище
	vip.BindEnv("store.driver", "STORE_DRIVER")
	vip.BindEnv("airtable.api_key", "AIRTABLE_API_KEY")
	vip.BindEnv("airtable.base_id", "AIRTABLE_BASE_ID")
	vip.BindEnv("airtable.base_url", "AIRTABLE_BASE_URL")
	vip.BindEnv("airtable.quiz_table", "AIRTABLE_QUIZ_TABLE")
	vip.BindEnv("airtable.votes_table", "AIRTABLE_VOTES_TABLE")
	vip.BindEnv("airtable.session_table", "AIRTABLE_SESSION_TABLE")
	vip.BindEnv("airtable.timeout", "AIRTABLE_TIMEOUT")

	// PostgreSQL
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")

	// Redis
	vip.BindEnv("redis.enabled", "REDIS_ENABLED")
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Сервер: PORT оставлен для совместимости с PaaS
	vip.BindEnv("server.port", "SERVER_PORT", "PORT")

	// Викторина
	vip.BindEnv("quiz.default_session", "QUIZ_DEFAULT_SESSION")
	vip.BindEnv("quiz.legacy_active_flag", "QUIZ_LEGACY_ACTIVE_FLAG")
	vip.BindEnv("quiz.catalog_cache_ttl", "QUIZ_CATALOG_CACHE_TTL")
	vip.BindEnv("quiz.advance_lock_ttl", "QUIZ_ADVANCE_LOCK_TTL")

	vip.BindEnv("websocket.enabled", "WEBSOCKET_ENABLED")
	vip.BindEnv("websocket.cluster_enabled", "WEBSOCKET_CLUSTER_ENABLED")
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл необязателен: все обязательные параметры можно передать через окружение
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит из окружения одной строкой через запятую
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.WithFields(log.Fields{
			"store_driver":       cfg.Store.Driver,
			"airtable_base_id":   cfg.Airtable.BaseID,
			"airtable_key_set":   cfg.Airtable.APIKey != "",
			"database_host":      cfg.Database.Host,
			"redis_enabled":      cfg.Redis.Enabled,
			"redis_addrs":        cfg.Redis.Addrs,
			"server_port":        cfg.Server.Port,
			"default_session":    cfg.Quiz.DefaultSession,
			"legacy_active_flag": cfg.Quiz.LegacyActiveFlag,
		}).Info("Загруженные значения конфигурации")
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverAirtable:
		if c.Airtable.APIKey == "" || c.Airtable.BaseID == "" {
			return fmt.Errorf("airtable credentials are required (check AIRTABLE_API_KEY, AIRTABLE_BASE_ID env vars)")
		}
		if c.Airtable.QuizTable == "" || c.Airtable.VotesTable == "" || c.Airtable.SessionTable == "" {
			return fmt.Errorf("airtable table names must not be empty")
		}
	case StoreDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required (check PORT or SERVER_PORT env vars)")
	}
	if c.Quiz.DefaultSession == "" {
		return fmt.Errorf("quiz default session name must not be empty")
	}
	if c.Quiz.AdvanceLockTTL <= 0 {
		return fmt.Errorf("quiz advance lock TTL must be positive (check QUIZ_ADVANCE_LOCK_TTL env var)")
	}
	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis is enabled but no addresses are configured (check REDIS_ADDRS env var)")
	}
	return nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
