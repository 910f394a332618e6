package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// MonitorConfig holds the price-extraction and alerting thresholds.
type MonitorConfig struct {
	MinPrice                int
	MaxPrice                int
	ZeroRatioAlertThreshold float64
	PriceChangeAlertRatio   float64
	ProfilesPath            string
	IntervalMinutes         int
	RunOnStart              bool
	FetchCreatedDates       bool
}

// StorageConfig selects and parameterizes the series store backend.
type StorageConfig struct {
	Backend     string // "json" or "postgres"
	HistoryPath string
	StatePath   string
	LastRunPath string
	PostgresURL string
}

type ExportConfig struct {
	Enabled bool
	Path    string
}

type FetcherConfig struct {
	AllowedDomain      string
	MarketURL          string
	RandomDelaySeconds int
}

type RESTconfig struct {
	Enabled bool
	PORT    string
}

type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

// ReportConfig drives the weekly e-mail digest. Cadence is the external
// scheduler's business; when Enabled, a report goes out after each run.
type ReportConfig struct {
	Enabled      bool
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
	FromEmail    string
	ToEmail      string
	GeminiAPIKey string
	GeminiModels []string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig holds the whole application configuration.
type AppConfig struct {
	AppName      string
	Monitor      MonitorConfig
	Storage      StorageConfig
	Export       ExportConfig
	Fetcher      FetcherConfig
	Rest         RESTconfig
	RabbitMQ     RabbitMQConfig
	Report       ReportConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig reads the configuration from environment variables, honoring a
// .env file when one is present.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: no .env file loaded (path: %v): %v\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "olx-monitor")

	cfg.Monitor.MinPrice = getEnvAsInt("MIN_PRICE", 300)
	cfg.Monitor.MaxPrice = getEnvAsInt("MAX_PRICE", 20000)
	cfg.Monitor.ZeroRatioAlertThreshold = getEnvAsFloat("ZERO_RATIO_ALERT_THRESHOLD", 0.5)
	cfg.Monitor.PriceChangeAlertRatio = getEnvAsFloat("PRICE_CHANGE_ALERT_RATIO", 0.15)
	cfg.Monitor.ProfilesPath = getEnvAsString("PROFILES_PATH", "profiles.json")
	cfg.Monitor.IntervalMinutes = getEnvAsInt("MONITOR_INTERVAL_MINUTES", 0)
	cfg.Monitor.RunOnStart = getEnvAsBool("MONITOR_RUN_ON_START", true)
	cfg.Monitor.FetchCreatedDates = getEnvAsBool("FETCH_CREATED_DATES", true)

	cfg.Storage.Backend = getEnvAsString("STORAGE_BACKEND", "json")
	cfg.Storage.HistoryPath = getEnvAsString("PRICE_HISTORY_PATH", "data/price_history.json")
	cfg.Storage.StatePath = getEnvAsString("PROFILES_STATE_PATH", "data/profiles_state.json")
	cfg.Storage.LastRunPath = getEnvAsString("LAST_RUN_PATH", "data/last_run.json")
	if cfg.Storage.Backend == "postgres" {
		cfg.Storage.PostgresURL = os.Getenv("POSTGRES_URL")
		if cfg.Storage.PostgresURL == "" {
			log.Println("WARNING: STORAGE_BACKEND is postgres, but POSTGRES_URL is not set. Falling back to json.")
			cfg.Storage.Backend = "json"
		}
	}

	cfg.Export.Enabled = getEnvAsBool("EXPORT_ENABLED", false)
	cfg.Export.Path = getEnvAsString("EXPORT_PATH", "data/olx_monitoring.csv")

	cfg.Fetcher.AllowedDomain = getEnvAsString("FETCH_ALLOWED_DOMAIN", "www.olx.pl")
	cfg.Fetcher.MarketURL = getEnvAsString("MARKET_URL", "https://www.olx.pl/nieruchomosci/stancje-pokoje/lublin/")
	cfg.Fetcher.RandomDelaySeconds = getEnvAsInt("FETCH_RANDOM_DELAY_SECONDS", 3)

	cfg.Rest.Enabled = getEnvAsBool("REST_ENABLED", true)
	cfg.Rest.PORT = getEnvAsString("PORT", "8080")

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			log.Println("WARNING: RABBITMQ_ENABLED is true, but RABBITMQ_URL is not set. Disabling alerts queue.")
			cfg.RabbitMQ.Enabled = false
		}
	}

	cfg.Report.Enabled = getEnvAsBool("REPORT_ENABLED", false)
	if cfg.Report.Enabled {
		cfg.Report.SMTPServer = getEnvAsString("SMTP_SERVER", "smtp.gmail.com")
		cfg.Report.SMTPPort = getEnvAsInt("SMTP_PORT", 465)
		cfg.Report.SMTPUser = os.Getenv("SMTP_USER")
		cfg.Report.SMTPPass = os.Getenv("SMTP_PASS")
		cfg.Report.FromEmail = getEnvAsString("REPORT_FROM", cfg.Report.SMTPUser)
		cfg.Report.ToEmail = os.Getenv("REPORT_TO")
		if cfg.Report.SMTPUser == "" || cfg.Report.ToEmail == "" {
			log.Println("WARNING: REPORT_ENABLED is true, but SMTP_USER or REPORT_TO is not set. Disabling report.")
			cfg.Report.Enabled = false
		}
	}
	cfg.Report.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Report.GeminiModels = getEnvAsStringSlice("GEMINI_MODELS",
		[]string{"gemini-2.0-flash-lite", "gemini-1.5-flash-8b", "gemini-1.5-flash"})

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as int or returns the default.
// Logs a warning when the variable exists but cannot be parsed.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsFloat reads an environment variable as float64 or returns the default.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueFloat, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Using default value: %g\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueFloat
}

// getEnvAsBool reads an environment variable as bool or returns the default.
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	parts := strings.Split(valStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
