package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	App     AppConfig
	Cache   CacheConfig
	Storage StorageConfig
	Drive   DriveConfig
	Batch   BatchConfig
	Plan    domain.PlanConfig
}

type ServerConfig struct {
	Port              string
	Mode              string
	ReadTimeout       int
	WriteTimeout      int
	AllowedOrigins    []string
	MaxConcurrentRuns int64
	MaxUploadMB       int64
}

type AppConfig struct {
	OutputDir string
	LogLevel  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ExportTTLSeconds int
}

// StorageConfig selects where exports are published. Driver is "s3",
// "sftp" or empty for none.
type StorageConfig struct {
	Driver string
	Prefix string
	S3     S3Config
	SFTP   SFTPConfig
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type SFTPConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	KeyFile        string
	KnownHostsFile string
	BaseDir        string
}

type DriveConfig struct {
	Enabled             bool
	CredentialsFile     string
	FolderID            string
	PollIntervalSeconds int
}

type BatchConfig struct {
	Workers             int
	RetryAttempts       int
	RetryBackoffSeconds int
}

// Load reads .env, the environment and the defaults into a fresh Config.
// Every call returns a new value, so callers may change it freely.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	plan := domain.DefaultPlanConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 60)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER_MAX_CONCURRENT_RUNS", 4)
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	v.SetDefault("APP_OUTPUT_DIR", "./data/output")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_EXPORT_TTL_SECONDS", 900)

	v.SetDefault("STORAGE_DRIVER", "")
	v.SetDefault("STORAGE_PREFIX", "exports")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("SFTP_HOST", "")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_USER", "")
	v.SetDefault("SFTP_PASSWORD", "")
	v.SetDefault("SFTP_KEY_FILE", "")
	v.SetDefault("SFTP_KNOWN_HOSTS", "")
	v.SetDefault("SFTP_BASE_DIR", "/")

	v.SetDefault("DRIVE_ENABLED", false)
	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_POLL_INTERVAL_SECONDS", 300)

	v.SetDefault("BATCH_WORKERS", 4)
	v.SetDefault("BATCH_RETRY_ATTEMPTS", 2)
	v.SetDefault("BATCH_RETRY_BACKOFF_SECONDS", 5)

	v.SetDefault("PLAN_WORKING_DAYS", plan.WorkingDays)
	v.SetDefault("PLAN_BATCH_ROUND_TO", plan.BatchRoundTo)
	v.SetDefault("PLAN_TARGET_MONTHS", FormatClassMap(plan.TargetMonths))
	v.SetDefault("PLAN_SAFETY_DAYS", FormatClassMap(plan.SafetyDays))
	v.SetDefault("PLAN_MIN_BATCH_MONTHS", FormatClassMap(plan.MinBatchMonths))
	v.SetDefault("PLAN_CUST_ALERT_EXCLUDE", strings.Join(plan.ExcludedKeys(), ","))
	v.SetDefault("PLAN_DEDUP_MACHINES", plan.DedupMachines)
	v.SetDefault("PLAN_START_DATE", plan.PlanStartDate.String())
	v.SetDefault("ALERT_PRODUCT_THRESHOLDS", formatThresholds(plan.ProductThresholds))
	v.SetDefault("ALERT_CUST_THRESHOLDS", formatThresholds(plan.CustThresholds))
}

func fromViper(v *viper.Viper) (*Config, error) {
	plan, err := planFromViper(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:              v.GetString("SERVER_PORT"),
			Mode:              v.GetString("SERVER_MODE"),
			ReadTimeout:       v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:      v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins:    v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxConcurrentRuns: v.GetInt64("SERVER_MAX_CONCURRENT_RUNS"),
			MaxUploadMB:       v.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		App: AppConfig{
			OutputDir: v.GetString("APP_OUTPUT_DIR"),
			LogLevel:  v.GetString("LOG_LEVEL"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ExportTTLSeconds: v.GetInt("CACHE_EXPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Prefix: strings.Trim(v.GetString("STORAGE_PREFIX"), "/"),
			S3: S3Config{
				Endpoint:  v.GetString("S3_ENDPOINT"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
				Bucket:    v.GetString("S3_BUCKET"),
				Region:    v.GetString("S3_REGION"),
				UseSSL:    v.GetBool("S3_USE_SSL"),
			},
			SFTP: SFTPConfig{
				Host:           v.GetString("SFTP_HOST"),
				Port:           v.GetInt("SFTP_PORT"),
				User:           v.GetString("SFTP_USER"),
				Password:       v.GetString("SFTP_PASSWORD"),
				KeyFile:        v.GetString("SFTP_KEY_FILE"),
				KnownHostsFile: v.GetString("SFTP_KNOWN_HOSTS"),
				BaseDir:        v.GetString("SFTP_BASE_DIR"),
			},
		},
		Drive: DriveConfig{
			Enabled:             v.GetBool("DRIVE_ENABLED"),
			CredentialsFile:     v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:            v.GetString("DRIVE_FOLDER_ID"),
			PollIntervalSeconds: v.GetInt("DRIVE_POLL_INTERVAL_SECONDS"),
		},
		Batch: BatchConfig{
			Workers:             v.GetInt("BATCH_WORKERS"),
			RetryAttempts:       v.GetInt("BATCH_RETRY_ATTEMPTS"),
			RetryBackoffSeconds: v.GetInt("BATCH_RETRY_BACKOFF_SECONDS"),
		},
		Plan: plan,
	}, nil
}

func planFromViper(v *viper.Viper) (domain.PlanConfig, error) {
	plan := domain.DefaultPlanConfig()
	plan.WorkingDays = v.GetInt("PLAN_WORKING_DAYS")
	plan.BatchRoundTo = v.GetInt64("PLAN_BATCH_ROUND_TO")
	plan.DedupMachines = v.GetBool("PLAN_DEDUP_MACHINES")
	plan.CustAlertExclude = domain.NewKeySet(splitList(v.GetString("PLAN_CUST_ALERT_EXCLUDE"))...)

	var err error
	for key, dst := range map[string]domain.ClassValues{
		"PLAN_TARGET_MONTHS":    plan.TargetMonths,
		"PLAN_SAFETY_DAYS":      plan.SafetyDays,
		"PLAN_MIN_BATCH_MONTHS": plan.MinBatchMonths,
	} {
		if err = parseClassMap(v.GetString(key), dst); err != nil {
			return plan, fmt.Errorf("%s: %w", key, err)
		}
	}

	if plan.ProductThresholds, err = parseThresholds(v.GetString("ALERT_PRODUCT_THRESHOLDS")); err != nil {
		return plan, fmt.Errorf("ALERT_PRODUCT_THRESHOLDS: %w", err)
	}
	if plan.CustThresholds, err = parseThresholds(v.GetString("ALERT_CUST_THRESHOLDS")); err != nil {
		return plan, fmt.Errorf("ALERT_CUST_THRESHOLDS: %w", err)
	}
	if s := strings.TrimSpace(v.GetString("PLAN_START_DATE")); s != "" {
		if plan.PlanStartDate, err = domain.ParseDate(s); err != nil {
			return plan, fmt.Errorf("PLAN_START_DATE: %w", err)
		}
	}

	if err := plan.Validate(); err != nil {
		return plan, err
	}
	return plan, nil
}

// RetryBackoff is the batch retry pause as a duration.
func (b BatchConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffSeconds) * time.Second
}

// parseClassMap reads "VERY_HIGH=3,HIGH=4" into dst. Classes not named keep
// their current value.
func parseClassMap(s string, dst domain.ClassValues) error {
	for _, part := range splitList(s) {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return fmt.Errorf("expected CLASS=value, got %q", part)
		}
		class, ok := domain.ParseDemandClass(strings.ToUpper(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("unknown demand class %q", name)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", class, err)
		}
		dst[class] = f
	}
	return nil
}

// FormatClassMap renders values in demand class order, the inverse of
// parseClassMap.
func FormatClassMap(values domain.ClassValues) string {
	parts := make([]string, 0, len(values))
	for _, class := range domain.DemandClasses {
		if v, ok := values[class]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", class, strconv.FormatFloat(v, 'f', -1, 64)))
		}
	}
	return strings.Join(parts, ",")
}

// parseThresholds reads "red,orange,yellow".
func parseThresholds(s string) (domain.Thresholds, error) {
	parts := splitList(s)
	if len(parts) != 3 {
		return domain.Thresholds{}, fmt.Errorf("expected three comma separated values, got %q", s)
	}
	var vals [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return domain.Thresholds{}, fmt.Errorf("invalid threshold %q: %w", p, err)
		}
		vals[i] = f
	}
	t := domain.Thresholds{RedLT: vals[0], OrangeLT: vals[1], YellowLT: vals[2]}
	if !t.Valid() {
		return t, fmt.Errorf("thresholds must be strictly increasing, got %q", s)
	}
	return t, nil
}

func formatThresholds(t domain.Thresholds) string {
	return strings.Join([]string{
		strconv.FormatFloat(t.RedLT, 'f', -1, 64),
		strconv.FormatFloat(t.OrangeLT, 'f', -1, 64),
		strconv.FormatFloat(t.YellowLT, 'f', -1, 64),
	}, ",")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
