package utils

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Broker      BrokerConfig
	Payment     PaymentConfig
	Jobs        JobsConfig
	Idempotency IdempotencyConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	LockTimeout time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	RoomCacheTTL time.Duration
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

type PaymentConfig struct {
	SecretKey     string
	WebhookSecret string
}

// JobsConfig holds the cadence and age thresholds of the reconciliation sweeps.
type JobsConfig struct {
	BookingExpireAfter    time.Duration
	BookingExpireInterval time.Duration
	PaymentExpireAfter    time.Duration
	PaymentExpireInterval time.Duration
	ReconcileSafetyDelay  time.Duration
	ReconcileInterval     time.Duration
	BatchSize             int
	LockTTL               time.Duration
}

type IdempotencyConfig struct {
	StaleAfter time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "hotel-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("DB_LOCK_TIMEOUT", "5s")
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("ROOM_CACHE_TTL", "5m")
	viper.SetDefault("BROKER_EXCHANGE", "booking.events")
	viper.SetDefault("BOOKING_EXPIRE_AFTER", "60m")
	viper.SetDefault("BOOKING_EXPIRE_INTERVAL", "10m")
	viper.SetDefault("PAYMENT_EXPIRE_AFTER", "15m")
	viper.SetDefault("PAYMENT_EXPIRE_INTERVAL", "15m")
	viper.SetDefault("RECONCILE_SAFETY_DELAY", "2m")
	viper.SetDefault("RECONCILE_INTERVAL", "10m")
	viper.SetDefault("JOB_BATCH_SIZE", 200)
	viper.SetDefault("JOB_LOCK_TTL", "5m")
	viper.SetDefault("IDEMPOTENCY_STALE_AFTER", "5m")

	// .env is optional in containers where everything comes from the environment
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			SSLMode:     viper.GetString("DB_SSLMODE"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			MinConns:    viper.GetInt32("DB_MIN_CONNS"),
			LockTimeout: viper.GetDuration("DB_LOCK_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:         viper.GetString("REDIS_ADDR"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			RoomCacheTTL: viper.GetDuration("ROOM_CACHE_TTL"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("BROKER_EXCHANGE"),
		},
		Payment: PaymentConfig{
			SecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		Jobs: JobsConfig{
			BookingExpireAfter:    viper.GetDuration("BOOKING_EXPIRE_AFTER"),
			BookingExpireInterval: viper.GetDuration("BOOKING_EXPIRE_INTERVAL"),
			PaymentExpireAfter:    viper.GetDuration("PAYMENT_EXPIRE_AFTER"),
			PaymentExpireInterval: viper.GetDuration("PAYMENT_EXPIRE_INTERVAL"),
			ReconcileSafetyDelay:  viper.GetDuration("RECONCILE_SAFETY_DELAY"),
			ReconcileInterval:     viper.GetDuration("RECONCILE_INTERVAL"),
			BatchSize:             viper.GetInt("JOB_BATCH_SIZE"),
			LockTTL:               viper.GetDuration("JOB_LOCK_TTL"),
		},
		Idempotency: IdempotencyConfig{
			StaleAfter: viper.GetDuration("IDEMPOTENCY_STALE_AFTER"),
		},
	}

	return config, nil
}
