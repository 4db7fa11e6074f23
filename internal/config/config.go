package config

import (
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the source document bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ExportConfig controls archive generation and retention.
type ExportConfig struct {
	Dir                 string
	WorkDir             string
	RetentionDays       int
	CleanupIntervalMin  int
	FilePrefix          string
	ColumnDelimiter     string
	DecimalSymbol       string
	DigitGroupingSymbol string
	TextEncapsulator    string
	RecordDelimiter     string
	DateFormat          string
	HashWorkers         int
	DataSupplierComment string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Timezone    string
	LogLevel    string
	StoreDriver string
	// SeedOwnerID and SeedOwnerName register one owner when the memory store is used.
	SeedOwnerID   string
	SeedOwnerName string
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Export        ExportConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          getEnv("PORT", "8080"),
		Timezone:      getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		SeedOwnerID:   getEnv("SEED_OWNER_ID", "org-1"),
		SeedOwnerName: getEnv("SEED_OWNER_NAME", "Demo Owner"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Export: ExportConfig{
			Dir:                 getEnv("EXPORT_DIR", "./exports"),
			WorkDir:             getEnv("EXPORT_WORK_DIR", os.TempDir()),
			RetentionDays:       getEnvInt("EXPORT_RETENTION_DAYS", 30),
			CleanupIntervalMin:  getEnvInt("EXPORT_CLEANUP_INTERVAL_MIN", 60),
			FilePrefix:          getEnv("EXPORT_FILE_PREFIX", "gdpdu"),
			ColumnDelimiter:     getEnv("EXPORT_COLUMN_DELIMITER", ";"),
			DecimalSymbol:       getEnv("EXPORT_DECIMAL_SYMBOL", ","),
			DigitGroupingSymbol: getEnv("EXPORT_DIGIT_GROUPING_SYMBOL", "."),
			TextEncapsulator:    getEnv("EXPORT_TEXT_ENCAPSULATOR", `"`),
			RecordDelimiter:     parseDelimiter(getEnv("EXPORT_RECORD_DELIMITER", "CRLF")),
			DateFormat:          getEnv("EXPORT_DATE_FORMAT", "DD.MM.YYYY"),
			HashWorkers:         getEnvInt("EXPORT_HASH_WORKERS", 4),
			DataSupplierComment: getEnv("EXPORT_DATA_SUPPLIER_COMMENT", ""),
		},
	}
}

// parseDelimiter accepts the symbolic names CRLF, LF and CR besides literal values.
func parseDelimiter(v string) string {
	switch strings.ToUpper(v) {
	case "CRLF":
		return "\r\n"
	case "LF":
		return "\n"
	case "CR":
		return "\r"
	}
	return v
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
