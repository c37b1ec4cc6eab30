package config

import (
	"fmt"
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
	ServiceName string `env:"SERVICE_NAME" envDefault:"taskquest"`
	Timezone    string `env:"APP_TIMEZONE" envDefault:"Local"` // 决定 trivia 的"自然日"边界

	// PostgreSQL 配置
	PostgreSQLHost     string   `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string   `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string   `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string   `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string   `env:"POSTGRESQL_DATABASE" envDefault:"taskquest"`
	PostgreSQLSchema   string   `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string   `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int      `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int      `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`
	PostgreSQLReplicas []string `env:"POSTGRESQL_REPLICAS" envSeparator:","` // 只读副本 DSN，可选

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"tq"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET" envDefault:"dev-secret"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"60"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 会话 cookie（OAuth state 使用）
	SessionSecret string `env:"SESSION_SECRET" envDefault:"dev-session-secret"`

	// Google 登录
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8888/v1/auth/google/callback"`

	// 邮件配置
	MailProvider    string        `env:"MAIL_PROVIDER" envDefault:"console"` // console, sendgrid, queue
	MailDelivery    string        `env:"MAIL_DELIVERY" envDefault:"console"` // worker 实际投递方式：console, sendgrid
	MailFromName    string        `env:"MAIL_FROM_NAME" envDefault:"Task Manager Bot"`
	MailFromAddress string        `env:"MAIL_FROM_ADDRESS" envDefault:"noreply@taskquest.local"`
	SendGridAPIKey  string        `env:"SENDGRID_API_KEY"`
	MailTimeout     time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`

	// Trivia 题库
	TriviaAPIURL     string        `env:"TRIVIA_API_URL" envDefault:"https://opentdb.com/api.php?amount=1&type=multiple"`
	TriviaTimeout    time.Duration `env:"TRIVIA_TIMEOUT" envDefault:"5s"`
	TriviaSessionTTL time.Duration `env:"TRIVIA_SESSION_TTL" envDefault:"30m"`

	// 提醒调度
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"24h"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪 / 指标
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// Validate 由各个二进制入口调用，测试不需要完整配置
func Validate() error {
	if Cfg.IsProduction() {
		if Cfg.JWTSecret == "" || Cfg.JWTSecret == "dev-secret" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if Cfg.SessionSecret == "" || Cfg.SessionSecret == "dev-session-secret" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
	}

	if Cfg.MailProvider == "sendgrid" && Cfg.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
	}

	if Cfg.GoogleClientID == "" {
		log.Printf("WARN: GOOGLE_CLIENT_ID is not set, Google login will not work")
	}

	if _, err := Cfg.Location(); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	return nil
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// Location 返回业务使用的时区
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
