package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	AirportsFile string
	RunwayFile   string
	RwyDir       string

	METARURL        string
	VatsimDataURL   string
	ATISEnabled     bool
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	CacheSize       int
	Interval        time.Duration
	Concurrency     int
	PromptManual    bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// Decision publishing.
	KafkaBrokers       []string
	KafkaDecisionTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	interval, err := time.ParseDuration(sharedcfg.EnvOrDefault("INTERVAL", "0"))
	if err != nil || interval < 0 {
		return nil, errors.New("invalid INTERVAL")
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		AirportsFile:    sharedcfg.EnvOrDefault("AIRPORTS_FILE", "airports.yaml"),
		RunwayFile:      sharedcfg.EnvOrDefault("RUNWAY_FILE", "runway.txt"),
		RwyDir:          sharedcfg.EnvOrDefault("RWY_DIR", "."),
		METARURL:        sharedcfg.EnvOrDefault("METAR_URL", "https://metar.vatsim.net"),
		VatsimDataURL:   sharedcfg.EnvOrDefault("VATSIM_DATA_URL", "https://data.vatsim.net/v3/vatsim-data.json"),
		ATISEnabled:     os.Getenv("ATIS_ENABLED") == "true",
		FetchTimeout:    fetchTimeout,
		CacheTTL:        cacheTTL,
		CacheSize:       cacheSize,
		Interval:        interval,
		Concurrency:     concurrency,
		PromptManual:    os.Getenv("PROMPT_MANUAL") == "true",
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:       brokers,
		KafkaDecisionTopic: sharedcfg.EnvOrDefault("KAFKA_DECISION_TOPIC", "runway-decisions"),
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.AirportsFile == "" {
		return nil, errors.New("AIRPORTS_FILE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaDecisionTopic == "" {
		return nil, errors.New("KAFKA_DECISION_TOPIC is required")
	}
	if cfg.PromptManual && cfg.Interval > 0 {
		return nil, errors.New("PROMPT_MANUAL cannot be combined with INTERVAL")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
