// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string        `yaml:"env" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string"`
	MigrationsPath          string        `yaml:"migrations_path" env-default:"./migrations"`
	OperationTimeout        time.Duration `yaml:"operation_timeout" env-default:"5s"`
	AdminEmail              string        `yaml:"admin_email"`
	AdminPassword           string        `yaml:"admin_password"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQConnection      `yaml:"rabbitmq_connection"`
	SMTPConnection          `yaml:"smtp_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	IdentityProvider        `yaml:"identity_provider"`
	PaymentProvider         `yaml:"payment_provider"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQConnection структура для настройки подключения к rabbitmq.
type RabbitMQConnection struct {
	AddressRabbitMQ string        `yaml:"addressrabbitmq"`
	RetriesRabbitMQ int           `yaml:"retries" env-default:"5"`
	DelayRabbitMQ   time.Duration `yaml:"delay" env-default:"2s"`
}

// SMTPConnection структура для настройки SMTP-сервера уведомлений.
type SMTPConnection struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port" env-default:"587"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// IdentityProvider структура для настройки хранилища идентификации.
// Mode local — учётные записи в собственной базе, remote — внешний
// управляемый провайдер по HTTP.
type IdentityProvider struct {
	Mode           string        `yaml:"mode" env-default:"local"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key" env:"IDENTITY_API_KEY"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
}

// PaymentProvider структура для настройки платёжного провайдера.
type PaymentProvider struct {
	ShopID        string `yaml:"shop_id" env:"PAYMENT_SHOP_ID"`
	SecretKey     string `yaml:"secret_key" env:"PAYMENT_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
	ReturnURL     string `yaml:"return_url"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
