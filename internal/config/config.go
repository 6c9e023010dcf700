package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string           `yaml:"env" env:"ENV" env-default:"local"`
	ServiceName string           `yaml:"service_name" env:"SERVICE_NAME" env-default:"holycat-orders"`
	HTTPServer  HTTPServerConfig `yaml:"http_server"`
	Postgres    PostgresConfig   `yaml:"postgres"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	JWT         JWTConfig        `yaml:"jwt"`
	Midtrans    MidtransConfig   `yaml:"midtrans"`
	Notifier    NotifierConfig   `yaml:"notifier"`
	Migrations  MigrationsConfig `yaml:"migrations"`
}

type HTTPServerConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDR" env-default:":8081"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"15s"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
	SSLMode  string `yaml:"ssl_mode" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env-default:"8"`
	MinConns int32  `yaml:"min_conns" env-default:"1"`
}

// DSN builds a postgres:// URL understood by both pgx and lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Topic         string   `yaml:"topic" env-default:"order.status.changed"`
	ProducerQueue int      `yaml:"producer_queue" env-default:"1024"`
}

type JWTConfig struct {
	Secret     string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	CookieName string `yaml:"cookie_name" env-default:"token"`
}

type MidtransConfig struct {
	ServerKey string        `yaml:"-" env:"MIDTRANS_SERVER_KEY"`
	BaseURL   string        `yaml:"base_url" env:"MIDTRANS_BASE_URL" env-default:"https://app.sandbox.midtrans.com"`
	Timeout   time.Duration `yaml:"timeout" env-default:"10s"`
}

type NotifierConfig struct {
	Group   string `yaml:"group" env:"NOTIFIER_GROUP" env-default:"order-notifier"`
	Workers int    `yaml:"workers" env:"NOTIFIER_WORKERS" env-default:"4"`
	From    string `yaml:"from" env-default:"no-reply@holycat.id"`
}

type MigrationsConfig struct {
	Path  string `yaml:"path" env-default:"./migrations"`
	Table string `yaml:"table" env-default:"schema_migrations"`
}

// MustLoad reads the file named by -config or CONFIG_PATH, after loading .env
// into the process environment when present.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic(fmt.Sprintf("can't read config file %s: %v", configPath, err))
	}
	return &cfg
}
