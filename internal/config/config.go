package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	S3        S3Config        `yaml:"s3"`
	Scan      ScanConfig      `yaml:"scan"`
	Rounds    RoundsConfig    `yaml:"rounds"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// RedisConfig enables the Redis change feed. An empty Addr keeps the feed in-process.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// S3Config configures evidence photo uploads. An empty Bucket disables uploads.
type S3Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Bucket          string        `yaml:"bucket"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	UploadExpiry    time.Duration `yaml:"upload_expiry"`
}

// ScanConfig tunes camera acquisition for scan sessions.
type ScanConfig struct {
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	MaxFailures    int           `yaml:"max_failures"`
}

type RoundsConfig struct {
	GeofenceRadiusMeters      float64 `yaml:"geofence_radius_meters"`
	RequireStartLocation      bool    `yaml:"require_start_location"`
	RequireVehicleEndLocation bool    `yaml:"require_vehicle_end_location"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PATROL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		DB: DBConfig{
			Path: "patrol.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Redis: RedisConfig{
			ChannelPrefix: "patrol:rounds:",
		},
		S3: S3Config{
			Region:       "us-east-1",
			UploadExpiry: 15 * time.Minute,
		},
		Scan: ScanConfig{
			AcquireTimeout: 8 * time.Second,
			FrameInterval:  250 * time.Millisecond,
			MaxFailures:    3,
		},
		Rounds: RoundsConfig{
			GeofenceRadiusMeters:      150,
			RequireVehicleEndLocation: true,
		},
	}
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("PATROL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PATROL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PATROL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("PATROL_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("PATROL_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid PATROL_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if dbPath := os.Getenv("PATROL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PATROL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("PATROL_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if addr := os.Getenv("PATROL_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("PATROL_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if bucket := os.Getenv("PATROL_S3_BUCKET"); bucket != "" {
		cfg.S3.Bucket = bucket
	}
	if endpoint := os.Getenv("PATROL_S3_ENDPOINT"); endpoint != "" {
		cfg.S3.Endpoint = endpoint
	}
	if key := os.Getenv("PATROL_S3_ACCESS_KEY_ID"); key != "" {
		cfg.S3.AccessKeyID = key
	}
	if secret := os.Getenv("PATROL_S3_SECRET_ACCESS_KEY"); secret != "" {
		cfg.S3.SecretAccessKey = secret
	}
	if timeout := os.Getenv("PATROL_SCAN_ACQUIRE_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid PATROL_SCAN_ACQUIRE_TIMEOUT: %w", err)
		}
		cfg.Scan.AcquireTimeout = d
	}
	if radius := os.Getenv("PATROL_GEOFENCE_RADIUS_METERS"); radius != "" {
		v, err := strconv.ParseFloat(radius, 64)
		if err != nil {
			return fmt.Errorf("invalid PATROL_GEOFENCE_RADIUS_METERS: %w", err)
		}
		cfg.Rounds.GeofenceRadiusMeters = v
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
