package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/pkg/tracing"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Client struct {
		ConfigAddress string        `yaml:"config_address"`
		FetchPOIs     bool          `yaml:"fetch_pois"`
		FetchMap      bool          `yaml:"fetch_map"`
		TickRate      int           `yaml:"tick_rate"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout"`
		AutoStart     bool          `yaml:"auto_start"`
	} `yaml:"client"`

	// Session holds the defaults used until a config is fetched or loaded.
	Session domain.SessionConfig `yaml:"session"`

	Remote struct {
		HTTPTimeout       time.Duration `yaml:"http_timeout"`
		POIPath           string        `yaml:"poi_path"`
		StreamReadTimeout time.Duration `yaml:"stream_read_timeout"`
		MaxMessageBytes   int64         `yaml:"max_message_bytes"`
		Retry             struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`
		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"remote"`

	Map struct {
		PointScale float64 `yaml:"point_scale"`
		BatchSize  int     `yaml:"batch_size"`
	} `yaml:"map"`

	DevServer struct {
		Address         string        `yaml:"address"`
		ConfigFile      string        `yaml:"config_file"`
		MapFile         string        `yaml:"map_file"`
		POIFile         string        `yaml:"poi_file"`
		DemoPOIs        int           `yaml:"demo_pois"`
		DemoMapPoints   int           `yaml:"demo_map_points"`
		FragmentSize    int           `yaml:"fragment_size"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

		RateLimiting struct {
			Enabled           bool    `yaml:"enabled"`
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"rate_limiting"`
	} `yaml:"dev_server"`

	Simulator struct {
		OpenDelay      time.Duration `yaml:"open_delay"`
		TrackingDelay  time.Duration `yaml:"tracking_delay"`
		FailAfter      time.Duration `yaml:"fail_after"`
		PreviewEnabled bool          `yaml:"preview_enabled"`
	} `yaml:"simulator"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		PrometheusAddress string `yaml:"prometheus_address"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing tracing.Config `yaml:"tracing"`

	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Address   string `yaml:"address"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		PoolSize  int    `yaml:"pool_size"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Client
	if c.Client.TickRate <= 0 {
		return fmt.Errorf("client.tick_rate must be > 0")
	}
	if c.Client.FetchTimeout < 0 {
		return fmt.Errorf("client.fetch_timeout must be >= 0")
	}

	// Session
	if c.Session.UDPPort <= 0 || c.Session.UDPPort > 65535 {
		return fmt.Errorf("session.udp_port must be between 1 and 65535")
	}
	if c.Session.WebsocketPort <= 0 || c.Session.WebsocketPort > 65535 {
		return fmt.Errorf("session.websocket_port must be between 1 and 65535")
	}
	if c.Session.Framerate <= 0 {
		return fmt.Errorf("session.framerate must be > 0")
	}

	// Remote
	if c.Remote.HTTPTimeout <= 0 {
		return fmt.Errorf("remote.http_timeout must be > 0")
	}
	if c.Remote.StreamReadTimeout <= 0 {
		return fmt.Errorf("remote.stream_read_timeout must be > 0")
	}
	if c.Remote.MaxMessageBytes <= 0 {
		return fmt.Errorf("remote.max_message_bytes must be > 0")
	}
	if c.Remote.Retry.MaxAttempts < 1 {
		return fmt.Errorf("remote.retry.max_attempts must be >= 1")
	}
	if c.Remote.Retry.InitialDelay < 0 || c.Remote.Retry.MaxDelay < c.Remote.Retry.InitialDelay {
		return fmt.Errorf("remote.retry.max_delay must be >= initial_delay >= 0")
	}
	if c.Remote.CircuitBreaker.FailureThreshold < 0 {
		return fmt.Errorf("remote.circuit_breaker.failure_threshold must be >= 0")
	}
	if c.Remote.CircuitBreaker.FailureThreshold > 0 && c.Remote.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("remote.circuit_breaker.timeout must be > 0 when the breaker is enabled")
	}

	// Map
	if c.Map.PointScale <= 0 {
		return fmt.Errorf("map.point_scale must be > 0")
	}
	if c.Map.BatchSize <= 0 {
		return fmt.Errorf("map.batch_size must be > 0")
	}

	// Dev server
	if c.DevServer.Address == "" {
		return fmt.Errorf("dev_server.address must not be empty")
	}
	if c.DevServer.FragmentSize <= 0 {
		return fmt.Errorf("dev_server.fragment_size must be > 0")
	}
	if c.DevServer.ReadTimeout <= 0 || c.DevServer.WriteTimeout <= 0 || c.DevServer.ShutdownTimeout <= 0 {
		return fmt.Errorf("dev_server timeouts must be > 0")
	}
	if c.DevServer.RateLimiting.Enabled {
		if c.DevServer.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("dev_server.rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.DevServer.RateLimiting.Burst <= 0 {
			return fmt.Errorf("dev_server.rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
		if c.DevServer.RateLimiting.MaxConcurrent < 0 {
			return fmt.Errorf("dev_server.rate_limiting.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	// Simulator
	if c.Simulator.OpenDelay < 0 || c.Simulator.TrackingDelay < 0 || c.Simulator.FailAfter < 0 {
		return fmt.Errorf("simulator delays must be >= 0")
	}

	// Monitoring
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusAddress == "" {
		return fmt.Errorf("monitoring.prometheus_address must not be empty when prometheus_enabled=true")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.applyEnvOverrides(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Client.FetchPOIs = true
	cfg.Client.FetchMap = true
	cfg.Client.TickRate = 60
	cfg.Client.FetchTimeout = 30 * time.Second

	cfg.Session = domain.DefaultSessionConfig()

	cfg.Remote.HTTPTimeout = 10 * time.Second
	cfg.Remote.POIPath = ""
	cfg.Remote.StreamReadTimeout = 15 * time.Second
	cfg.Remote.MaxMessageBytes = 16 << 20
	cfg.Remote.Retry.MaxAttempts = 3
	cfg.Remote.Retry.InitialDelay = 200 * time.Millisecond
	cfg.Remote.Retry.MaxDelay = 2 * time.Second
	cfg.Remote.CircuitBreaker.FailureThreshold = 5
	cfg.Remote.CircuitBreaker.Timeout = 30 * time.Second

	cfg.Map.PointScale = 0.0025
	cfg.Map.BatchSize = 1000

	cfg.DevServer.Address = ":8080"
	cfg.DevServer.DemoPOIs = 12
	cfg.DevServer.DemoMapPoints = 2500
	cfg.DevServer.FragmentSize = 4096
	cfg.DevServer.ReadTimeout = 30 * time.Second
	cfg.DevServer.WriteTimeout = 30 * time.Second
	cfg.DevServer.ShutdownTimeout = 10 * time.Second
	cfg.DevServer.RateLimiting.Enabled = false
	cfg.DevServer.RateLimiting.RequestsPerSecond = 20
	cfg.DevServer.RateLimiting.Burst = 40
	cfg.DevServer.RateLimiting.MaxConcurrent = 0

	cfg.Simulator.OpenDelay = 500 * time.Millisecond
	cfg.Simulator.TrackingDelay = time.Second
	cfg.Simulator.PreviewEnabled = true

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusAddress = ":9090"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing = tracing.DefaultConfig()

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 4
	cfg.Redis.KeyPrefix = "cloudslam:"

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("CLOUDSLAM_CONFIG_ADDRESS"); addr != "" {
		c.Client.ConfigAddress = addr
	}
	if ip := os.Getenv("CLOUDSLAM_SERVER_IP"); ip != "" {
		c.Session.ServerIP = ip
	}
	if addr := os.Getenv("CLOUDSLAM_DEV_SERVER_ADDRESS"); addr != "" {
		c.DevServer.Address = addr
	}
	if level := os.Getenv("CLOUDSLAM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("CLOUDSLAM_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if rate := os.Getenv("CLOUDSLAM_TICK_RATE"); rate != "" {
		v, err := strconv.Atoi(rate)
		if err != nil {
			return fmt.Errorf("invalid CLOUDSLAM_TICK_RATE %q: %w", rate, err)
		}
		c.Client.TickRate = v
	}
	return nil
}

// TickInterval is the main loop period derived from client.tick_rate.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Client.TickRate)
}
