// Package config loads server settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/timeofday"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	ServerAddr string `yaml:"serverAddr"`

	StoreDriver string `yaml:"storeDriver"`
	DataDir     string `yaml:"dataDir"`
	MongoURI    string `yaml:"mongoUri"`
	MongoDB     string `yaml:"mongoDb"`

	RedisAddr    string `yaml:"redisAddr"`
	RedisChannel string `yaml:"redisChannel"`
	AMQPURL      string `yaml:"amqpUrl"`
	AMQPExchange string `yaml:"amqpExchange"`

	InfluxURL    string `yaml:"influxUrl"`
	InfluxToken  string `yaml:"influxToken"`
	InfluxOrg    string `yaml:"influxOrg"`
	InfluxBucket string `yaml:"influxBucket"`

	OSRMWalkURL  string `yaml:"osrmWalkUrl"`
	OSRMDriveURL string `yaml:"osrmDriveUrl"`
	TransitURL   string `yaml:"transitUrl"`
	NominatimURL string `yaml:"nominatimUrl"`

	DefaultDayStart  string        `yaml:"defaultDayStart"`
	LegTimeout       time.Duration `yaml:"legTimeout"`
	Timezone         string        `yaml:"timezone"`
	FallbackSpeedKmh float64       `yaml:"fallbackSpeedKmh"`
	RateLimitRPS     float64       `yaml:"rateLimitRps"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		ServerAddr:       "127.0.0.1:8080",
		StoreDriver:      StoreJSON,
		MongoDB:          "itinerary",
		OSRMWalkURL:      "https://routing.openstreetmap.de/routed-foot",
		OSRMDriveURL:     "https://router.project-osrm.org",
		NominatimURL:     "https://nominatim.openstreetmap.org",
		DefaultDayStart:  "09:00",
		LegTimeout:       10 * time.Second,
		Timezone:         "Asia/Tokyo",
		FallbackSpeedKmh: 20,
		RateLimitRPS:     10,
	}
}

// Load reads .env, then the YAML file named by ITINERARY_CONFIG (or the default
// config path when it exists), then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	path := os.Getenv("ITINERARY_CONFIG")
	explicit := path != ""
	if !explicit {
		path = database.DefaultConfigPath()
	}
	return LoadFile(path, explicit)
}

// LoadFile is Load without .env handling. A missing file is an error only when required.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			log.Printf("Loaded config file: %s", path)
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisChannel = getEnv("REDIS_CHANNEL", c.RedisChannel)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.InfluxURL = getEnv("INFLUX_URL", c.InfluxURL)
	c.InfluxToken = getEnv("INFLUX_TOKEN", c.InfluxToken)
	c.InfluxOrg = getEnv("INFLUX_ORG", c.InfluxOrg)
	c.InfluxBucket = getEnv("INFLUX_BUCKET", c.InfluxBucket)
	c.OSRMWalkURL = getEnv("OSRM_WALK_URL", c.OSRMWalkURL)
	c.OSRMDriveURL = getEnv("OSRM_DRIVE_URL", c.OSRMDriveURL)
	c.TransitURL = getEnv("TRANSIT_URL", c.TransitURL)
	c.NominatimURL = getEnv("NOMINATIM_URL", c.NominatimURL)
	c.DefaultDayStart = getEnv("DEFAULT_DAY_START", c.DefaultDayStart)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)

	if v := os.Getenv("LEG_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LEG_TIMEOUT %q: %w", v, err)
		}
		c.LegTimeout = d
	}
	if v := os.Getenv("FALLBACK_SPEED_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FALLBACK_SPEED_KMH %q: %w", v, err)
		}
		c.FallbackSpeedKmh = f
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = f
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreJSON, StoreSQLite:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q (want json, sqlite or mongo)", c.StoreDriver)
	}

	if !timeofday.Valid(c.DefaultDayStart) {
		return fmt.Errorf("invalid DEFAULT_DAY_START %q (want HH:mm)", c.DefaultDayStart)
	}
	if c.LegTimeout <= 0 {
		return fmt.Errorf("LEG_TIMEOUT must be positive, got %s", c.LegTimeout)
	}
	if c.FallbackSpeedKmh <= 0 {
		return fmt.Errorf("FALLBACK_SPEED_KMH must be positive, got %v", c.FallbackSpeedKmh)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InfluxEnabled reports whether every InfluxDB setting is present
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != "" && c.InfluxOrg != "" && c.InfluxBucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
