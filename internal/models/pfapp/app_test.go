package pfapp

import (
	"context"
	"testing"

	"portfolio/internal/models/pfanalytics"
	"portfolio/internal/models/pfconfig"
	"portfolio/internal/models/pfmessages"
	"portfolio/internal/models/pfstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *pfconfig.Config {
	conf := &pfconfig.Config{
		Database: pfconfig.DatabaseConfig{Db: "sqlite", Path: ":memory:"},
	}
	if err := pfconfig.Validate(conf); err != nil {
		panic(err)
	}
	return conf
}

func TestNewWithDB(t *testing.T) {
	db, err := pfstore.OpenMemory()
	require.NoError(t, err)

	app, err := NewWithDB(context.Background(), testConfig(), db)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Analytics)
	assert.NotNil(t, app.Messages)
	assert.NotNil(t, app.Metrics)
	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Captchas)
	assert.Nil(t, app.Scheduler)

	for _, table := range []string{"messages", "profile_views", "visitors", "analytics"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// le service de messages alimente le rollup du jour
	ctx := context.Background()
	_, err = app.Messages.Submit(ctx, pfmessages.Input{Name: "Ada", Email: "ada@example.com", Message: "Hello"})
	require.NoError(t, err)

	var day pfanalytics.AnalyticsDay
	require.NoError(t, db.First(&day).Error)
	assert.Equal(t, int64(1), day.MessagesReceived)
}

func TestNewWithOptionalFeatures(t *testing.T) {
	db, err := pfstore.OpenMemory()
	require.NoError(t, err)

	conf := testConfig()
	conf.Contact.Captcha = true
	conf.Analytics.Reconcile = pfconfig.DefaultReconcile
	conf.Analytics.GeoIP = "/nonexistent/GeoLite2-Country.mmdb"
	conf.Database.Redis.Addr = "127.0.0.1:1"

	app, err := NewWithDB(context.Background(), conf, db)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Captchas)
	require.NotNil(t, app.Scheduler)
	assert.False(t, app.Scheduler.Next().IsZero())
	// dépendances optionnelles injoignables
	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Geo)
}

func TestNewWithInvalidSchedule(t *testing.T) {
	db, err := pfstore.OpenMemory()
	require.NoError(t, err)

	conf := testConfig()
	conf.Analytics.Reconcile = "every night"

	_, err = NewWithDB(context.Background(), conf, db)
	assert.Error(t, err)
}

func TestNewOpensSqliteFile(t *testing.T) {
	conf := testConfig()
	conf.Database.Path = t.TempDir() + "/portfolio.db"

	app, err := New(context.Background(), conf)
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}
