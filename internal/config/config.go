// Package config loads settings for the API server and the collector from an
// optional YAML file overlaid by environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the optional YAML file read before the environment.
const ConfigPathEnv = "BILLTRACKER_CONFIG"

type Config struct {
	Addr          string `yaml:"addr" validate:"required"`
	DataURL       string `yaml:"dataUrl" validate:"required,url"`
	DataCachePath string `yaml:"dataCachePath" validate:"required"`
	// Empty RedisURL keeps the primary channel in process.
	RedisURL string `yaml:"redisUrl" validate:"omitempty,url"`
	// Empty DatabaseURL stores the secondary channel as files under StateDir.
	DatabaseURL   string `yaml:"databaseUrl"`
	StateDir      string `yaml:"stateDir" validate:"required"`
	MigrationsDir string `yaml:"migrationsDir"`

	StateTTL         time.Duration `yaml:"stateTtl" validate:"gt=0"`
	PageSize         int           `yaml:"pageSize" validate:"gte=1,lte=500"`
	SearchDebounce   time.Duration `yaml:"searchDebounce" validate:"gte=0"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval" validate:"gt=0"`
	SessionStart     string        `yaml:"sessionStart" validate:"omitempty,datetime=2006-01-02"`
	SessionEnd       string        `yaml:"sessionEnd" validate:"omitempty,datetime=2006-01-02"`
	BillTypes        string        `yaml:"billTypes"`
	NoteMode         string        `yaml:"noteMode" validate:"oneof=append replace"`
	RefreshPolicy    string        `yaml:"refreshPolicy" validate:"oneof=latest-issued latest-resolved"`

	MeiliURL       string `yaml:"meiliUrl" validate:"omitempty,url"`
	MeiliMasterKey string `yaml:"meiliMasterKey"`
	CORSOrigin     string `yaml:"corsOrigin"`

	LogLevel  string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" validate:"oneof=console json"`
	LogFile   string `yaml:"logFile"`

	Collector CollectorConfig `yaml:"collector"`
}

// CollectorConfig holds the settings only cmd/collector reads.
type CollectorConfig struct {
	ServiceURL  string        `yaml:"serviceUrl" validate:"required,url"`
	Year        int           `yaml:"year" validate:"gte=1990"`
	Biennium    string        `yaml:"biennium" validate:"required"`
	Retries     int           `yaml:"retries" validate:"gte=1,lte=10"`
	BackoffBase time.Duration `yaml:"backoffBase" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	DataDir     string        `yaml:"dataDir" validate:"required"`
	// Zero Interval runs the collector once and exits.
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
	Git      bool          `yaml:"git"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket" validate:"required_with=MinioEndpoint"`
	MinioUseSSL    bool   `yaml:"minioUseSsl"`
}

// Load builds the configuration from defaults, the file named by
// BILLTRACKER_CONFIG and then the environment.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	def := defaultConfig()
	cfg.applyEnvOverrides()
	if cfg.DataURL == def.DataURL {
		cfg.DataURL = DataFileURL(cfg.Collector.DataDir)
	}
	return cfg, nil
}

// DataFileURL is the file: URL of the bills.json the collector publishes
// under dir.
func DataFileURL(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(dir, "bills.json"))}
	return u.String()
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultConfig() Config {
	year := time.Now().Year()
	return Config{
		Addr:             ":8787",
		DataURL:          DataFileURL("./data"),
		DataCachePath:    "./data/cache/bills.json",
		StateDir:         "./data/state",
		StateTTL:         90 * 24 * time.Hour,
		PageSize:         25,
		SearchDebounce:   300 * time.Millisecond,
		AutosaveInterval: 30 * time.Second,
		NoteMode:         "append",
		RefreshPolicy:    "latest-issued",
		CORSOrigin:       "*",
		LogLevel:         "info",
		LogFormat:        "console",
		Collector: CollectorConfig{
			ServiceURL:  "https://wslwebservices.leg.wa.gov",
			Year:        year,
			Biennium:    Biennium(year),
			Retries:     3,
			BackoffBase: time.Second,
			Timeout:     30 * time.Second,
			DataDir:     "./data",
		},
	}
}

// Biennium returns the two-year legislative period containing year, such as
// "2025-26". Bienniums start in odd years.
func Biennium(year int) string {
	start := year
	if year%2 == 0 {
		start = year - 1
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Addr = getenv("API_ADDR", c.Addr)
	c.DataURL = getenv("DATA_URL", c.DataURL)
	c.DataCachePath = getenv("DATA_CACHE_PATH", c.DataCachePath)
	c.RedisURL = getenv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.StateDir = getenv("STATE_DIR", c.StateDir)
	c.MigrationsDir = getenv("MIGRATIONS_DIR", c.MigrationsDir)
	c.StateTTL = time.Duration(getenvInt("STATE_TTL_DAYS", int(c.StateTTL/(24*time.Hour)))) * 24 * time.Hour
	c.PageSize = getenvInt("PAGE_SIZE", c.PageSize)
	c.SearchDebounce = time.Duration(getenvInt("SEARCH_DEBOUNCE_MS", int(c.SearchDebounce/time.Millisecond))) * time.Millisecond
	c.AutosaveInterval = time.Duration(getenvInt("AUTOSAVE_INTERVAL_SECONDS", int(c.AutosaveInterval/time.Second))) * time.Second
	c.SessionStart = getenv("SESSION_START", c.SessionStart)
	c.SessionEnd = getenv("SESSION_END", c.SessionEnd)
	c.BillTypes = getenv("BILL_TYPES", c.BillTypes)
	c.NoteMode = strings.ToLower(getenv("NOTE_MODE", c.NoteMode))
	c.RefreshPolicy = strings.ToLower(getenv("REFRESH_POLICY", c.RefreshPolicy))
	c.MeiliURL = getenv("MEILI_URL", c.MeiliURL)
	c.MeiliMasterKey = getenv("MEILI_MASTER_KEY", c.MeiliMasterKey)
	c.CORSOrigin = getenv("CORS_ORIGIN", c.CORSOrigin)
	c.LogLevel = strings.ToLower(getenv("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getenv("LOG_FORMAT", c.LogFormat))
	c.LogFile = getenv("LOG_FILE", c.LogFile)

	col := &c.Collector
	col.ServiceURL = getenv("WALEG_SERVICE_URL", col.ServiceURL)
	if year := getenvInt("WALEG_YEAR", 0); year != 0 && year != col.Year {
		col.Year = year
		col.Biennium = Biennium(year)
	}
	col.Biennium = getenv("WALEG_BIENNIUM", col.Biennium)
	col.Retries = getenvInt("WALEG_RETRIES", col.Retries)
	col.BackoffBase = time.Duration(getenvInt("WALEG_BACKOFF_BASE_MS", int(col.BackoffBase/time.Millisecond))) * time.Millisecond
	col.Timeout = getenvDuration("WALEG_TIMEOUT", col.Timeout)
	col.DataDir = getenv("COLLECTOR_DATA_DIR", col.DataDir)
	col.Interval = getenvDuration("COLLECTOR_INTERVAL", col.Interval)
	col.Git = getenvBool("COLLECTOR_GIT", col.Git)
	col.MinioEndpoint = getenv("MINIO_ENDPOINT", col.MinioEndpoint)
	col.MinioAccessKey = getenv("MINIO_ACCESS_KEY", col.MinioAccessKey)
	col.MinioSecretKey = getenv("MINIO_SECRET_KEY", col.MinioSecretKey)
	col.MinioBucket = getenv("MINIO_BUCKET", col.MinioBucket)
	col.MinioUseSSL = getenvBool("MINIO_USE_SSL", col.MinioUseSSL)
}

// mergeConfig copies every non-zero field of override onto base.
func mergeConfig(base, override Config) Config {
	setString(&base.Addr, override.Addr)
	setString(&base.DataURL, override.DataURL)
	setString(&base.DataCachePath, override.DataCachePath)
	setString(&base.RedisURL, override.RedisURL)
	setString(&base.DatabaseURL, override.DatabaseURL)
	setString(&base.StateDir, override.StateDir)
	setString(&base.MigrationsDir, override.MigrationsDir)
	setDuration(&base.StateTTL, override.StateTTL)
	if override.PageSize != 0 {
		base.PageSize = override.PageSize
	}
	setDuration(&base.SearchDebounce, override.SearchDebounce)
	setDuration(&base.AutosaveInterval, override.AutosaveInterval)
	setString(&base.SessionStart, override.SessionStart)
	setString(&base.SessionEnd, override.SessionEnd)
	setString(&base.BillTypes, override.BillTypes)
	setString(&base.NoteMode, override.NoteMode)
	setString(&base.RefreshPolicy, override.RefreshPolicy)
	setString(&base.MeiliURL, override.MeiliURL)
	setString(&base.MeiliMasterKey, override.MeiliMasterKey)
	setString(&base.CORSOrigin, override.CORSOrigin)
	setString(&base.LogLevel, override.LogLevel)
	setString(&base.LogFormat, override.LogFormat)
	setString(&base.LogFile, override.LogFile)

	b, o := &base.Collector, override.Collector
	setString(&b.ServiceURL, o.ServiceURL)
	if o.Year != 0 {
		b.Year = o.Year
		b.Biennium = Biennium(o.Year)
	}
	setString(&b.Biennium, o.Biennium)
	if o.Retries != 0 {
		b.Retries = o.Retries
	}
	setDuration(&b.BackoffBase, o.BackoffBase)
	setDuration(&b.Timeout, o.Timeout)
	setString(&b.DataDir, o.DataDir)
	setDuration(&b.Interval, o.Interval)
	b.Git = b.Git || o.Git
	setString(&b.MinioEndpoint, o.MinioEndpoint)
	setString(&b.MinioAccessKey, o.MinioAccessKey)
	setString(&b.MinioSecretKey, o.MinioSecretKey)
	setString(&b.MinioBucket, o.MinioBucket)
	b.MinioUseSSL = b.MinioUseSSL || o.MinioUseSSL

	return base
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
