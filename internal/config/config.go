// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Minio holds object store connection settings.
type Minio struct {
	Endpoint string
	User     string
	Password string
	Bucket   string
}

// Validate checks that credentials are present.
func (m Minio) Validate() error {
	if m.User == "" || m.Password == "" {
		return fmt.Errorf("MINIO_USER and MINIO_PASSWORD are required")
	}
	return nil
}

// Rabbit holds message broker connection settings.
type Rabbit struct {
	Host     string
	User     string
	Password string
}

// URL renders the AMQP connection string.
func (r Rabbit) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   r.Host,
		Path:   "/",
	}
	return u.String()
}

// Validate checks that credentials are present.
func (r Rabbit) Validate() error {
	if r.User == "" || r.Password == "" {
		return fmt.Errorf("RABBITMQ_USER and RABBITMQ_PASSWORD are required")
	}
	return nil
}

// Redis holds result cache settings.
type Redis struct {
	Addr     string
	CacheTTL time.Duration
}

// Postgres holds session database settings.
type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Validate checks that credentials are present.
func (p Postgres) Validate() error {
	if p.User == "" || p.Password == "" {
		return fmt.Errorf("POSTGRES_USER and POSTGRES_PASSWORD are required")
	}
	return nil
}

// Gemini holds analysis model settings.
type Gemini struct {
	APIKey string
	Model  string
}

// Validate checks that the API key is present.
func (g Gemini) Validate() error {
	if g.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// AssemblyAI holds transcription service settings.
type AssemblyAI struct {
	APIKey string
}

// Validate checks that the API key is present.
func (a AssemblyAI) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required")
	}
	return nil
}

// Worker holds stage worker tuning knobs.
type Worker struct {
	Concurrency      int
	CallTimeout      time.Duration
	MaxDeliveryCount int
}

// Config is the full configuration surface. Each binary validates only
// the sections it uses.
type Config struct {
	Minio        Minio
	Rabbit       Rabbit
	Redis        Redis
	Postgres     Postgres
	Gemini       Gemini
	AssemblyAI   AssemblyAI
	Worker       Worker
	HTTPAddr     string
	FFmpegBinary string
}

// Load reads configuration from the environment. A .env file, when
// present, supplies defaults without overriding real env vars.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Minio: Minio{
			Endpoint: getenv("MINIO_ENDPOINT", "minio:9000"),
			User:     os.Getenv("MINIO_USER"),
			Password: os.Getenv("MINIO_PASSWORD"),
			Bucket:   getenv("MINIO_BUCKET", "sessions"),
		},
		Rabbit: Rabbit{
			Host:     getenv("RABBITMQ_HOST", "rabbitmq:5672"),
			User:     os.Getenv("RABBITMQ_USER"),
			Password: os.Getenv("RABBITMQ_PASSWORD"),
		},
		Redis: Redis{
			Addr:     getenv("REDIS_ADDR", "redis:6379"),
			CacheTTL: getduration("REDIS_CACHE_TTL", 24*time.Hour),
		},
		Postgres: Postgres{
			Host:     getenv("POSTGRES_HOST", "postgres"),
			Port:     getint("POSTGRES_PORT", 5432),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: getenv("POSTGRES_DB", "sessions"),
		},
		Gemini: Gemini{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getenv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
		AssemblyAI: AssemblyAI{
			APIKey: os.Getenv("ASSEMBLYAI_API_KEY"),
		},
		Worker: Worker{
			Concurrency:      getint("WORKER_CONCURRENCY", 2),
			CallTimeout:      getduration("EXTERNAL_CALL_TIMEOUT", 5*time.Minute),
			MaxDeliveryCount: getint("MAX_DELIVERY_COUNT", 3),
		},
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		FFmpegBinary: getenv("FFMPEG_BINARY", "ffmpeg"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
