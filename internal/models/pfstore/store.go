package pfstore

import (
	"context"
	"fmt"
	"time"

	"portfolio/internal/gormzerologger"
	"portfolio/internal/models/pfconfig"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open ouvre la base configurée. Le handle est partagé par tous les services
// et doit être fermé avec Close à l'arrêt.
func Open(cfg pfconfig.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:  gormzerologger.New(log.Logger, logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	return open(cfg, gcfg)
}

func open(cfg pfconfig.DatabaseConfig, gcfg *gorm.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Db {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gcfg)
	case "mysql":
		db, err = gorm.Open(mysql.Open(cfg.Dsn), gcfg)
	default:
		return nil, fmt.Errorf("le type de database doit etre sqlite ou mysql")
	}
	if err != nil {
		return nil, fmt.Errorf("connexion %s: %w", cfg.Db, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Db == "sqlite" {
		// une seule connexion: sqlite sérialise les écritures et ":memory:" est propre à chaque connexion
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenMemory ouvre une base sqlite en mémoire, utilisée par les tests
func OpenMemory() (*gorm.DB, error) {
	return open(pfconfig.DatabaseConfig{Db: "sqlite", Path: ":memory:"}, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// Migrate ajoute les colonnes manquantes des tables existantes puis lance AutoMigrate.
// Retourne la liste "table.colonne" des colonnes ajoutées sur des tables déjà présentes.
func Migrate(db *gorm.DB, models ...any) ([]string, error) {
	var added []string
	migrator := db.Migrator()

	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return added, fmt.Errorf("analyse du modèle %T: %w", model, err)
		}
		if !migrator.HasTable(model) {
			continue
		}
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" || field.PrimaryKey || migrator.HasColumn(model, field.DBName) {
				continue
			}
			if err := migrator.AddColumn(model, field.Name); err != nil {
				return added, fmt.Errorf("ajout de %s.%s: %w", stmt.Schema.Table, field.DBName, err)
			}
			added = append(added, stmt.Schema.Table+"."+field.DBName)
		}
	}

	for _, col := range added {
		log.Warn().Str("column", col).Msg("colonne manquante ajoutée")
	}

	if err := db.AutoMigrate(models...); err != nil {
		return added, fmt.Errorf("migration: %w", err)
	}
	return added, nil
}

// Ping vérifie que la base répond
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
