package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"lumio"`

	// 助理时区，「今天/明天」的日界一律按此时区解析
	Timezone        string `env:"ASSISTANT_TIMEZONE" envDefault:"Asia/Taipei"`
	DefaultLocation string `env:"DEFAULT_WEATHER_LOCATION" envDefault:""`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"lumio"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"lumio"`

	// 意图分类配置
	IntentMinScore int `env:"INTENT_MIN_SCORE" envDefault:"2"` // 自由文本低于此分数回退闲聊

	// 提醒调度配置
	SchedulerPollInterval  time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"30s"`
	DeliveryTimeout        time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
	DeliveryMaxAttempts    int           `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"3"`
	DeliveryRetryBackoff   time.Duration `env:"DELIVERY_RETRY_BACKOFF" envDefault:"15s"`
	ReminderAuditRetention time.Duration `env:"REMINDER_AUDIT_RETENTION" envDefault:"168h"` // 已结束提醒的保留窗口
	MaxPendingPerChat      int           `env:"MAX_PENDING_PER_CHAT" envDefault:"50"`

	// 外部协作方配置
	TransportBaseURL string `env:"TRANSPORT_BASE_URL" envDefault:""`
	TransportToken   string `env:"TRANSPORT_TOKEN"`

	CalendarBaseURL string `env:"CALENDAR_BASE_URL" envDefault:""`
	CalendarID      string `env:"CALENDAR_ID" envDefault:"primary"`
	CalendarToken   string `env:"CALENDAR_TOKEN"`

	LedgerBaseURL   string `env:"LEDGER_BASE_URL" envDefault:""`
	LedgerSheetName string `env:"LEDGER_SHEET_NAME" envDefault:"records"`
	LedgerToken     string `env:"LEDGER_TOKEN"`

	WeatherBaseURL string `env:"WEATHER_BASE_URL" envDefault:"https://wttr.in"`
	StockBaseURL   string `env:"STOCK_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`
	SearchBaseURL  string `env:"SEARCH_BASE_URL" envDefault:"https://api.duckduckgo.com"`

	PersonaBaseURL string `env:"PERSONA_BASE_URL" envDefault:""`
	PersonaModel   string `env:"PERSONA_MODEL" envDefault:"gpt-4o"`
	PersonaToken   string `env:"PERSONA_TOKEN"`

	// 外部调用重试配置
	CollabRetryAttempts int           `env:"COLLAB_RETRY_ATTEMPTS" envDefault:"3"`
	CollabRetryBackoff  time.Duration `env:"COLLAB_RETRY_BACKOFF" envDefault:"500ms"`
	CollabTimeout       time.Duration `env:"COLLAB_TIMEOUT" envDefault:"8s"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if _, err := time.LoadLocation(Cfg.Timezone); err != nil {
		log.Fatalf("ASSISTANT_TIMEZONE %q is not a valid IANA timezone: %v", Cfg.Timezone, err)
	}

	if Cfg.TransportBaseURL == "" {
		log.Printf("WARN: TRANSPORT_BASE_URL is not set, outbound replies and reminder delivery will not work")
	}
	if Cfg.CalendarBaseURL == "" {
		log.Printf("WARN: CALENDAR_BASE_URL is not set, calendar intents will be unavailable")
	}
	if Cfg.LedgerBaseURL == "" {
		log.Printf("WARN: LEDGER_BASE_URL is not set, expense intents will be unavailable")
	}
	if Cfg.PersonaBaseURL == "" {
		log.Printf("WARN: PERSONA_BASE_URL is not set, freeform conversation will use a canned reply")
	}

	if Cfg.DeliveryMaxAttempts < 1 {
		log.Fatal("DELIVERY_MAX_ATTEMPTS must be at least 1")
	}
	if Cfg.SchedulerPollInterval <= 0 {
		log.Fatal("SCHEDULER_POLL_INTERVAL must be positive")
	}
}

// Location 返回配置时区，config 加载时已验证必定存在
func (c *Config) Location() *time.Location {
	loc, _ := time.LoadLocation(c.Timezone)
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
