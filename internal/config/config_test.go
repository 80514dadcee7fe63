package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "5 0 * * *", cfg.ReconcileSchedule)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("YARD_TIMEZONE", "UTC")
	t.Setenv("RECEIPT_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.Equal(t, "UTC", cfg.Location().String())
	assert.True(t, cfg.ReceiptUseSSL)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store", "STORE_DRIVER", "cassandra"},
		{"unknown sql driver", "DB_DRIVER", "mysql"},
		{"bad timezone", "YARD_TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
