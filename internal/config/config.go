package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/peacesecurity"
)

type AppConfig struct {
	HDXSite string
	HDXKey  string
	// DryRun writes catalog records locally instead of calling HDX.
	DryRun bool

	UserAgent      string
	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	// TempDir holds the run folder, saved responses and dry run output.
	TempDir          string
	StatePath        string
	StateDefaultDate time.Time
	WhereToStart     string

	Save     bool
	UseSaved bool

	// ScheduleInterval repeats runs when set; zero runs once and exits.
	ScheduleInterval time.Duration
	Port             string

	Project             peacesecurity.Config
	DatasetStaticConfig string
}

// projectFile is the layout of project_configuration.yml.
type projectFile struct {
	BaseURL      string            `yaml:"base_url"`
	Datasets     []string          `yaml:"datasets"`
	DatasetNames map[string]string `yaml:"dataset_names"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.HDXSite = strings.TrimRight(getenvDefault("HDX_SITE", "https://data.humdata.org"), "/")
	cfg.HDXKey = os.Getenv("HDX_KEY")

	dryRun, err := getenvBool("HDX_DRY_RUN", cfg.HDXKey == "")
	if err != nil {
		return nil, err
	}
	cfg.DryRun = dryRun

	cfg.UserAgent = getenvDefault("USER_AGENT", "hdx-scraper-peacesecurity")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout
	cfg.HTTPMaxRetries = getenvInt("HTTP_MAX_RETRIES", 3)

	cfg.TempDir = getenvDefault("TEMP_DIR", filepath.Join(os.TempDir(), "hdx-scraper-peacesecurity"))
	cfg.StatePath = getenvDefault("STATE_PATH", filepath.Join(cfg.TempDir, "last_update_dates.json"))

	defaultDate, err := time.Parse("2006-01-02", getenvDefault("STATE_DEFAULT_DATE", "2017-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATE_DEFAULT_DATE: %w", err)
	}
	cfg.StateDefaultDate = defaultDate
	cfg.WhereToStart = os.Getenv("WHERETOSTART")

	if cfg.Save, err = getenvBool("SAVE", false); err != nil {
		return nil, err
	}
	if cfg.UseSaved, err = getenvBool("USE_SAVED", false); err != nil {
		return nil, err
	}

	if v := os.Getenv("SCHEDULE_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULE_INTERVAL: %w", err)
		}
		cfg.ScheduleInterval = interval
	}
	cfg.Port = getenvDefault("PORT", "8080")

	project, err := LoadProject(getenvDefault("PROJECT_CONFIG", "config/project_configuration.yml"))
	if err != nil {
		return nil, err
	}
	cfg.Project = project
	cfg.DatasetStaticConfig = getenvDefault("DATASET_STATIC_CONFIG", "config/hdx_dataset_static.yml")

	return cfg, nil
}

// LoadProject reads the project YAML listing the upstream datasets.
func LoadProject(path string) (peacesecurity.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return peacesecurity.Config{}, fmt.Errorf("read project config: %w", err)
	}

	var pf projectFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return peacesecurity.Config{}, fmt.Errorf("decode project config %s: %w", path, err)
	}

	if pf.BaseURL == "" {
		return peacesecurity.Config{}, fmt.Errorf("project config %s: base_url is required", path)
	}
	if !strings.HasSuffix(pf.BaseURL, "/") {
		pf.BaseURL += "/"
	}
	if len(pf.Datasets) == 0 {
		return peacesecurity.Config{}, fmt.Errorf("project config %s: datasets must not be empty", path)
	}

	return peacesecurity.Config{
		BaseURL:      pf.BaseURL,
		Datasets:     pf.Datasets,
		DatasetNames: pf.DatasetNames,
	}, nil
}

// RunFolder is where resource files and progress are written.
func (c *AppConfig) RunFolder() string { return filepath.Join(c.TempDir, "run") }

// SavedDataDir is where raw responses are saved and replayed from.
func (c *AppConfig) SavedDataDir() string { return filepath.Join(c.TempDir, "saved_data") }

// CatalogDir receives dry run catalog records.
func (c *AppConfig) CatalogDir() string { return filepath.Join(c.TempDir, "catalog") }

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
