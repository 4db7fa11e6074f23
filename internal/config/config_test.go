package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("EXPORT_RETENTION_DAYS", "7")
	t.Setenv("EXPORT_COLUMN_DELIMITER", "|")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 7, cfg.Export.RetentionDays)
	assert.Equal(t, "|", cfg.Export.ColumnDelimiter)
}

func TestLoad_ExportDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 30, cfg.Export.RetentionDays)
	assert.Equal(t, 60, cfg.Export.CleanupIntervalMin)
	assert.Equal(t, "gdpdu", cfg.Export.FilePrefix)
	assert.Equal(t, ";", cfg.Export.ColumnDelimiter)
	assert.Equal(t, ",", cfg.Export.DecimalSymbol)
	assert.Equal(t, ".", cfg.Export.DigitGroupingSymbol)
	assert.Equal(t, `"`, cfg.Export.TextEncapsulator)
	assert.Equal(t, "\r\n", cfg.Export.RecordDelimiter)
	assert.Equal(t, 4, cfg.Export.HashWorkers)
	assert.Equal(t, "DD.MM.YYYY", cfg.Export.DateFormat)
	assert.Equal(t, "org-1", cfg.SeedOwnerID)
}

func TestParseDelimiter(t *testing.T) {
	assert.Equal(t, "\r\n", parseDelimiter("crlf"))
	assert.Equal(t, "\n", parseDelimiter("LF"))
	assert.Equal(t, "\r", parseDelimiter("CR"))
	assert.Equal(t, "##", parseDelimiter("##"))
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
