package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "coremind", cfg.Database.User)
				assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
				assert.Equal(t, "http://localhost:11434", cfg.Providers.OllamaBaseURL)
				assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxFileSize)
			},
		},
		{
			name: "explicit overrides",
			envVars: map[string]string{
				"ENVIRONMENT":      "development",
				"SERVER_PORT":      "9000",
				"DB_HOST":          "db.internal",
				"DB_PORT":          "5433",
				"ACCESS_TOKEN_TTL": "2h",
				"CORS_ORIGINS":     "https://app.example.com, https://admin.example.com",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "db.internal", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
			},
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"ENVIRONMENT":  "development",
				"DATABASE_URL": "postgres://u:p@pg.internal:6543/coremind?sslmode=require",
				"DB_HOST":      "ignored.internal",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.NotEmpty(t, cfg.Database.ConnectionString)
				assert.Equal(t, cfg.Database.ConnectionString, cfg.Database.DSN())
				assert.Contains(t, cfg.Database.LogString(), "pg.internal")
				assert.NotContains(t, cfg.Database.LogString(), ":p@")
			},
		},
		{
			name: "production requires secret key",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"DB_HOST":        "db.internal",
				"ENCRYPTION_KEY": "0123456789abcdef0123456789abcdef",
			},
			wantErr: true,
		},
		{
			name: "production requires encryption key",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"DB_HOST":     "db.internal",
				"SECRET_KEY":  "super-secret",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer os.Clearenv()

			cfg, err := New(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "coremind",
		Password: "secret",
		Database: "coremind",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=coremind")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8000}
	assert.Equal(t, "127.0.0.1:8000", cfg.Address())
}
