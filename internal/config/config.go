package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	GinMode   string
	JWTSecret string
	NodeID    int64 // snowflake node for order ids
	CORS      []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	SMTP     SMTPConfig

	CacheTTL       time.Duration
	NotifyBuffer   int
	WithdrawalRate float64 // requests per second per client IP
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	ProjectID         string
	CredentialsFile   string
	CredentialsBase64 string
}

type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
}

var (
	appConfig *Config
	once      sync.Once
)

// Load reads configs/.env when present, then the process environment.
func Load(envFile string) (*Config, error) {
	var err error
	once.Do(func() {
		if envFile == "" {
			envFile = "configs/.env"
		}
		if loadErr := godotenv.Load(envFile); loadErr != nil {
			log.Printf("No %s file found or error loading it", envFile)
		}

		v := viper.New()
		v.AutomaticEnv()
		setDefaults(v)

		c := &Config{
			Port:      v.GetString("PORT"),
			GinMode:   v.GetString("GIN_MODE"),
			JWTSecret: v.GetString("JWT_SECRET"),
			NodeID:    v.GetInt64("NODE_ID"),
			CORS:      splitList(v.GetString("CORS_ORIGINS")),
			DB: DatabaseConfig{
				Host:     v.GetString("DB_HOST"),
				Port:     v.GetString("DB_PORT"),
				User:     v.GetString("DB_USER"),
				Password: v.GetString("DB_PASSWORD"),
				Name:     v.GetString("DB_NAME"),
				SSLMode:  v.GetString("DB_SSLMODE"),
			},
			Redis: RedisConfig{
				Addr:     v.GetString("REDIS_ADDR"),
				Password: v.GetString("REDIS_PASSWORD"),
				DB:       v.GetInt("REDIS_DB"),
			},
			Firebase: FirebaseConfig{
				ProjectID:         v.GetString("FIREBASE_PROJECT_ID"),
				CredentialsFile:   v.GetString("FIREBASE_CREDENTIALS_FILE"),
				CredentialsBase64: v.GetString("FIREBASE_CREDENTIALS_BASE64"),
			},
			SMTP: SMTPConfig{
				Host:       v.GetString("SMTP_HOST"),
				Port:       v.GetInt("SMTP_PORT"),
				User:       v.GetString("SMTP_USER"),
				Password:   v.GetString("SMTP_PASS"),
				From:       v.GetString("SMTP_SENDER"),
				AdminEmail: v.GetString("ADMIN_EMAIL"),
			},
			CacheTTL:       v.GetDuration("CACHE_TTL"),
			NotifyBuffer:   v.GetInt("NOTIFY_BUFFER"),
			WithdrawalRate: v.GetFloat64("WITHDRAWAL_RATE"),
		}

		if c.JWTSecret == "" {
			if c.GinMode == "release" {
				err = fmt.Errorf("JWT_SECRET is required in release mode")
				return
			}
			c.JWTSecret = "default_super_secret_key" // development only
		}
		if c.NodeID < 0 || c.NodeID > 1023 {
			err = fmt.Errorf("NODE_ID must be between 0 and 1023, got %d", c.NodeID)
			return
		}
		appConfig = c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded configuration. Call Load once at startup.
func Get() *Config {
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("CACHE_TTL", "2m")
	v.SetDefault("NOTIFY_BUFFER", 256)
	v.SetDefault("WITHDRAWAL_RATE", 0.2)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
