package pfapp

import (
	"context"
	"errors"

	"portfolio/internal/models/pfanalytics"
	"portfolio/internal/models/pfcaptchas"
	"portfolio/internal/models/pfconfig"
	"portfolio/internal/models/pfmessages"
	"portfolio/internal/models/pfmetrics"
	"portfolio/internal/models/pfstore"
	"portfolio/internal/pfredis"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App regroupe les dépendances partagées par les handlers
type App struct {
	Config    *pfconfig.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Geo       *pfanalytics.GeoLocator
	Metrics   *pfmetrics.Metrics
	Analytics *pfanalytics.Service
	Messages  *pfmessages.Service
	// nil si le captcha est désactivé
	Captchas  *pfcaptchas.Captchas
	Scheduler *pfanalytics.Scheduler
}

// New ouvre la base, la migre puis construit les services.
// Redis et GeoIP sont optionnels : une erreur est loguée et la fonctionnalité désactivée.
func New(ctx context.Context, conf *pfconfig.Config) (*App, error) {
	db, err := pfstore.Open(conf.Database, conf.Logger.Level)
	if err != nil {
		return nil, err
	}
	return NewWithDB(ctx, conf, db)
}

// NewWithDB construit l'application sur une base déjà ouverte
func NewWithDB(ctx context.Context, conf *pfconfig.Config, db *gorm.DB) (*App, error) {
	app := &App{
		Config:  conf,
		DB:      db,
		Metrics: pfmetrics.New(),
	}

	models := append(pfanalytics.Models(), pfmessages.Models()...)
	added, err := pfstore.Migrate(db, models...)
	if err != nil {
		app.Close()
		return nil, err
	}
	if len(added) > 0 {
		log.Info().Strs("columns", added).Msg("schéma mis à jour")
	}

	client, err := pfredis.Connect(ctx, conf.Database.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis indisponible, compteurs temps réel désactivés")
	}
	app.Redis = client

	if conf.Analytics.GeoIP != "" {
		geo, err := pfanalytics.OpenGeo(conf.Analytics.GeoIP)
		if err != nil {
			log.Warn().Err(err).Str("path", conf.Analytics.GeoIP).Msg("base GeoIP illisible")
		}
		app.Geo = geo
	}

	resolver, err := pfanalytics.NewKeyResolver(conf.Analytics.VisitorKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Analytics = pfanalytics.NewService(db,
		pfanalytics.WithRedis(app.Redis),
		pfanalytics.WithGeo(app.Geo),
		pfanalytics.WithResolver(resolver),
		pfanalytics.WithMetrics(app.Metrics),
	)
	app.Messages = pfmessages.NewService(db,
		pfmessages.WithTracker(app.Analytics),
		pfmessages.WithMetrics(app.Metrics),
	)

	if conf.Contact.Captcha {
		app.Captchas = pfcaptchas.New(app.Redis)
	}

	if conf.Analytics.Reconcile != "" {
		sc, err := pfanalytics.StartScheduler(app.Analytics, conf.Analytics.Reconcile)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Scheduler = sc
		log.Info().Time("next", sc.Next()).Msg("réconciliation planifiée")
	}

	return app, nil
}

// Close arrête le planificateur puis ferme les connexions
func (a *App) Close() error {
	a.Scheduler.Stop()

	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Geo != nil {
		errs = append(errs, a.Geo.Close())
	}
	errs = append(errs, pfstore.Close(a.DB))
	return errors.Join(errs...)
}
