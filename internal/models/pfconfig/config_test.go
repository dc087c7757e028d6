package pfconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCreateExampleConfig(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "example.yaml")

	name, err := CreateExampleConfig(tempFile)
	require.NoError(t, err)
	assert.Equal(t, tempFile, name)

	data, err := os.ReadFile(tempFile)
	require.NoError(t, err)

	var config Config
	require.NoError(t, yaml.Unmarshal(data, &config))
	assert.Equal(t, "sqlite", config.Database.Db)
	assert.Equal(t, VisitorKeyAuto, config.Analytics.VisitorKey)
	assert.Equal(t, int64(5), config.Contact.RateLimit)
	assert.NoError(t, Validate(&config))
}

func TestLoadConfig(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "load.yaml")
	config := &Config{
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "test.db",
		},
		Cors: CorsConfig{Origins: []string{"https://ada.dev"}},
	}
	require.NoError(t, WriteConfigYaml(tempFile, config))

	loaded, err := LoadConfig(tempFile)
	require.NoError(t, err)
	assert.Equal(t, "test.db", loaded.Database.Path)
	assert.Equal(t, []string{"https://ada.dev"}, loaded.Cors.Origins)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{"sqlite ok", Config{Database: DatabaseConfig{Db: "sqlite", Path: "x.db"}}, false},
		{"mysql ok", Config{Database: DatabaseConfig{Db: "mysql", Dsn: "u:p@/db"}}, false},
		{"db vide", Config{}, true},
		{"sqlite sans path", Config{Database: DatabaseConfig{Db: "sqlite"}}, true},
		{"mysql sans dsn", Config{Database: DatabaseConfig{Db: "mysql"}}, true},
		{"db inconnue", Config{Database: DatabaseConfig{Db: "oracle", Dsn: "x"}}, true},
		{"clé visiteur inconnue", Config{
			Database:  DatabaseConfig{Db: "sqlite", Path: "x.db"},
			Analytics: AnalyticsConfig{VisitorKey: "cookie"},
		}, true},
		{"ratelimit négatif", Config{
			Database: DatabaseConfig{Db: "sqlite", Path: "x.db"},
			Contact:  ContactConfig{RateLimit: -1},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	conf := Config{Database: DatabaseConfig{Db: "sqlite", Path: "x.db"}}
	require.NoError(t, Validate(&conf))
	assert.Equal(t, "localhost:8080", conf.Listen.Website)
	assert.Equal(t, VisitorKeyAuto, conf.Analytics.VisitorKey)

	conf.Listen.Website = ":3000"
	require.NoError(t, Validate(&conf))
	assert.Equal(t, "localhost:3000", conf.Listen.Website)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":         "4000",
		"DATABASE_DSN": "user:pass@tcp(db:3306)/portfolio?parseTime=true",
		"REDIS_ADDR":   "redis:6379",
		"FRONTEND_URL": "https://ada.dev",
		"APP_ENV":      "production",
	}
	conf := &Config{
		Listen:   ListenConfig{Website: "127.0.0.1:3000"},
		Database: DatabaseConfig{Db: "sqlite", Path: "x.db"},
	}

	ApplyEnv(conf, func(key string) string { return env[key] })

	assert.Equal(t, "127.0.0.1:4000", conf.Listen.Website)
	assert.Equal(t, "mysql", conf.Database.Db)
	assert.Equal(t, env["DATABASE_DSN"], conf.Database.Dsn)
	assert.Equal(t, "redis:6379", conf.Database.Redis.Addr)
	assert.Equal(t, []string{"https://ada.dev"}, conf.Cors.Origins)
	assert.True(t, conf.Production)
}

func TestApplyEnvEmpty(t *testing.T) {
	conf := &Config{Database: DatabaseConfig{Db: "sqlite", Path: "x.db"}}
	ApplyEnv(conf, func(string) string { return "" })
	assert.Equal(t, "sqlite", conf.Database.Db)
	assert.False(t, conf.Production)
	assert.Empty(t, conf.Listen.Website)
}
