// Package config builds the immutable service configuration from environment
// variables over embedded defaults. Load runs once at startup; the resulting
// Config is passed into constructors and never mutated.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server      ServerConfig
	Recognition RecognitionConfig
	Liveness    LivenessConfig
	Geofence    GeofenceConfig
	Cooldown    CooldownConfig
	Inference   InferenceConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Evidence    EvidenceConfig
}

type ServerConfig struct {
	Port           int
	APIKey         string // empty disables API-key auth
	AllowedOrigins string // comma-separated CORS whitelist
}

type RecognitionConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
}

type LivenessConfig struct {
	RejectThreshold float64 `yaml:"reject_threshold"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
}

type GeofenceConfig struct {
	AnchorLat         float64
	AnchorLng         float64
	MaxDistanceMeters float64 `yaml:"max_distance_meters"`
}

type CooldownConfig struct {
	Window time.Duration
}

type InferenceConfig struct {
	URL     string        // defaults to http://localhost:8000
	Timeout time.Duration // per-request timeout (default 30s)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty selects the in-memory store
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	URL string // optional; empty selects the in-memory cooldown tracker
}

type EvidenceConfig struct {
	Dir string // defaults to ./evidence
}

// defaults mirrors the embedded defaults.yaml layout. The cooldown window is
// kept as a string because yaml.v3 has no native duration support.
type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Liveness    LivenessConfig    `yaml:"liveness"`
	Geofence    GeofenceConfig    `yaml:"geofence"`
	Cooldown    struct {
		Window string `yaml:"window"`
	} `yaml:"cooldown"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64, falling back on unset
// or invalid values.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration string.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// Embedded file, so this cannot fail at runtime.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	defaultWindow, err := time.ParseDuration(def.Cooldown.Window)
	if err != nil {
		panic("invalid cooldown window in embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Port:           envInt("FACEGATE_PORT", 8080),
			APIKey:         os.Getenv("FACEGATE_API_KEY"),
			AllowedOrigins: os.Getenv("FACEGATE_ALLOWED_ORIGINS"),
		},
		Recognition: RecognitionConfig{
			MinSimilarity: envFloat("FACEGATE_MIN_SIMILARITY", def.Recognition.MinSimilarity),
		},
		Liveness: LivenessConfig{
			RejectThreshold: envFloat("FACEGATE_LIVENESS_REJECT", def.Liveness.RejectThreshold),
			AcceptThreshold: envFloat("FACEGATE_LIVENESS_ACCEPT", def.Liveness.AcceptThreshold),
		},
		Geofence: GeofenceConfig{
			AnchorLat:         envFloat("FACEGATE_ANCHOR_LAT", 0),
			AnchorLng:         envFloat("FACEGATE_ANCHOR_LNG", 0),
			MaxDistanceMeters: envFloat("FACEGATE_MAX_DISTANCE_METERS", def.Geofence.MaxDistanceMeters),
		},
		Cooldown: CooldownConfig{
			Window: envDuration("FACEGATE_COOLDOWN_WINDOW", defaultWindow),
		},
		Inference: InferenceConfig{
			URL:     envString("INFERENCE_URL", "http://localhost:8000"),
			Timeout: envDuration("INFERENCE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Evidence: EvidenceConfig{
			Dir: envString("EVIDENCE_DIR", "./evidence"),
		},
	}
}
