package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cropmap_service/internal/core"
	"cropmap_service/internal/render"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceURL      = "url"
	SourceFile     = "file"
	SourcePostgres = "postgres"

	// ConfigPathEnv names the YAML file when --config is not given.
	ConfigPathEnv = "CROPMAP_CONFIG"

	DefaultDatasetURL = "https://drive.usercontent.google.com/download?id=1_vd4HISZB2h2--CiXKezeWDXHHo2fY23&export=download&authuser=0&confirm=t"
)

type Config struct {
	Port string `yaml:"port"`

	DatasetSource string        `yaml:"dataset_source"`
	DatasetURL    string        `yaml:"dataset_url"`
	DatasetFile   string        `yaml:"dataset_file"`
	DatabaseURL   string        `yaml:"database_url"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`

	SampleFraction float64 `yaml:"sample_fraction"`
	SampleSeed     int64   `yaml:"sample_seed"`

	MapCenterLat float64 `yaml:"map_center_lat"`
	MapCenterLon float64 `yaml:"map_center_lon"`
	MapZoom      int     `yaml:"map_zoom"`

	PageCacheTTL time.Duration `yaml:"page_cache_ttl"`

	OverpassURL     string        `yaml:"overpass_url"`
	OverpassTimeout time.Duration `yaml:"overpass_timeout"`
	LocateDistricts bool          `yaml:"locate_districts"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Port:            "8080",
		DatasetSource:   SourceURL,
		DatasetURL:      DefaultDatasetURL,
		FetchTimeout:    2 * time.Minute,
		SampleFraction:  core.DefaultSampleFraction,
		SampleSeed:      core.DefaultSampleSeed,
		MapCenterLat:    render.DefaultCenterLat,
		MapCenterLon:    render.DefaultCenterLon,
		MapZoom:         render.DefaultZoom,
		PageCacheTTL:    10 * time.Minute,
		OverpassTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
	}
}

// Load builds the configuration from defaults, a .env file, an optional YAML
// file and the environment, each overriding the one before.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
		log.Printf("[config] loaded %s", path)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvWithDefault("PORT", c.Port)
	c.DatasetSource = getEnvWithDefault("DATASET_SOURCE", c.DatasetSource)
	c.DatasetURL = getEnvWithDefault("DATASET_URL", c.DatasetURL)
	c.DatasetFile = getEnvWithDefault("DATASET_FILE", c.DatasetFile)
	c.DatabaseURL = getEnvWithDefault("DATABASE_URL", c.DatabaseURL)
	c.FetchTimeout = getEnvAsDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.SampleFraction = getEnvAsFloat("SAMPLE_FRACTION", c.SampleFraction)
	c.SampleSeed = int64(getEnvAsInt("SAMPLE_SEED", int(c.SampleSeed)))
	c.MapCenterLat = getEnvAsFloat("MAP_CENTER_LAT", c.MapCenterLat)
	c.MapCenterLon = getEnvAsFloat("MAP_CENTER_LON", c.MapCenterLon)
	c.MapZoom = getEnvAsInt("MAP_ZOOM", c.MapZoom)
	c.PageCacheTTL = getEnvAsDuration("PAGE_CACHE_TTL", c.PageCacheTTL)
	c.OverpassURL = getEnvWithDefault("OVERPASS_URL", c.OverpassURL)
	c.OverpassTimeout = getEnvAsDuration("OVERPASS_TIMEOUT", c.OverpassTimeout)
	c.LocateDistricts = getEnvAsBool("LOCATE_DISTRICTS", c.LocateDistricts)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
}

func (c *Config) Validate() error {
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return fmt.Errorf("sample fraction must be in (0, 1], got %v", c.SampleFraction)
	}
	switch c.DatasetSource {
	case SourceURL:
		if c.DatasetURL == "" {
			return errors.New("dataset source url requires DATASET_URL")
		}
	case SourceFile:
		if c.DatasetFile == "" {
			return errors.New("dataset source file requires DATASET_FILE")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("dataset source postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.DatasetSource)
	}
	return nil
}

// LocatorEnabled reports whether district markers should be placed via Overpass.
func (c *Config) LocatorEnabled() bool {
	return c.LocateDistricts && c.OverpassURL != ""
}

// Helper functions
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
