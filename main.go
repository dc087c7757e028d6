package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers_analytics "portfolio/internal/handlers/analytics"
	handlers_messages "portfolio/internal/handlers/messages"
	handlers_static "portfolio/internal/handlers/static"
	handlers_system "portfolio/internal/handlers/system"
	"portfolio/internal/models/pfapp"
	"portfolio/internal/models/pfconfig"
	"portfolio/internal/models/pflog"
	"portfolio/internal/pfmiddleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const VERSION string = "1.0.0"

var BuildID string

const shutdownTimeout = 10 * time.Second

func newServer(conf *pfconfig.Config) *gin.Engine {
	if conf.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if conf.TrustedProxies != nil {
		if err := r.SetTrustedProxies(conf.TrustedProxies); err != nil {
			log.Warn().Err(err).Msg("trustedproxies invalides")
		}
	}
	if conf.TrustedPlatform != "" {
		switch conf.TrustedPlatform {
		case "cloudflare":
			r.TrustedPlatform = gin.PlatformCloudflare
		case "google":
			r.TrustedPlatform = gin.PlatformGoogleAppEngine
		case "flyio":
			r.TrustedPlatform = gin.PlatformFlyIO
		default:
			r.TrustedPlatform = conf.TrustedPlatform
		}
	}

	return r
}

func setRoutes(r *gin.Engine, app *pfapp.App) error {
	conf := app.Config

	pfmiddleware.InitMiddleware(r, pfmiddleware.Options{
		Production: conf.Production,
		Origins:    conf.Cors.Origins,
		Secret:     conf.Session.Secret,
		Metrics:    app.Metrics,
	})

	static, err := handlers_static.NewStaticHandler()
	if err != nil {
		return fmt.Errorf("scripts embarqués: %w", err)
	}

	analyticsHandler := handlers_analytics.NewAnalyticsHandler(app.Analytics, conf.Production)
	messagesHandler := handlers_messages.NewMessagesHandler(app.Messages, app.Captchas, conf.Production)
	systemHandler := handlers_system.NewSystemHandler(app.DB, app.Redis)

	//default
	r.NoRoute(handlers_system.NotFound)

	// Route statiques
	if conf.StaticPath != "" {
		if _, err := os.Stat(conf.StaticPath); err == nil {
			r.Static("/static/", conf.StaticPath)
		}
	}
	r.GET("/files/*filepath", static.Serve)

	// API publiques
	api := r.Group("/api")
	{
		api.GET("/health", systemHandler.Health)
		api.GET("/captcha", messagesHandler.Captcha)
		analyticsHandler.Register(api.Group("/views"))
		messagesHandler.Register(api.Group("/messages"), pfmiddleware.NewLimiter(conf.Contact.RateLimit))
	}

	return nil
}

func newMetricsServer(conf *pfconfig.Config, app *pfapp.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	return &http.Server{
		Addr:              conf.Listen.Metrics,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func startServer(ctx context.Context, conf *pfconfig.Config, r *gin.Engine, app *pfapp.App) error {
	servers := []*http.Server{{
		Addr:              conf.Listen.Website,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if conf.Listen.Metrics != "" {
		log.Info().Msgf("Metrics disponible sur http://%s/metrics", conf.Listen.Metrics)
		servers = append(servers, newMetricsServer(conf, app))
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}
	log.Info().Msgf("API démarrée sur http://%s", conf.Listen.Website)

	var err error
	select {
	case <-ctx.Done():
		log.Info().Msg("arrêt demandé")
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Str("addr", srv.Addr).Msg("arrêt du serveur")
		}
	}
	return err
}

func parseCommandLineArgs() (configFile string, shouldCreateExample bool, versionDisplay bool, err error) {
	var config = flag.String("config", "", "Fichier de configuration YAML")
	var example = flag.Bool("example", false, "Créer un fichier de configuration exemple")
	var version = flag.Bool("version", false, "version du produit")
	flag.Parse()

	if *version {
		return "", false, true, nil
	}

	if *example {
		return "", true, false, nil
	}

	if *config == "" {
		return "", false, false, fmt.Errorf("fichier de configuration requis")
	}

	return *config, false, false, nil
}

func initConfiguration() *pfconfig.Config {
	configFile, shouldCreateExample, versionDisplay, err := parseCommandLineArgs()
	if err != nil {
		fmt.Println("Usage:")
		fmt.Println("  portfolio -config portfolio.yaml")
		fmt.Println("  portfolio -example  (pour créer un fichier exemple)")
		fmt.Println("  portfolio -version  (affiche la version)")
		os.Exit(1)
	}

	if versionDisplay {
		fmt.Println(VERSION)
		os.Exit(0)
	}

	pfconfig.CreateExample(shouldCreateExample, configFile)

	conf, err := pfconfig.LoadAndConvertConfig(configFile)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	return conf
}

func run(ctx context.Context, conf *pfconfig.Config) error {
	closers, err := pflog.Setup(conf.Logger, conf.Production)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	pfconfig.DisplayConfiguration(conf, BuildID)

	app, err := pfapp.New(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	r := newServer(conf)
	if err := setRoutes(r, app); err != nil {
		return err
	}
	return startServer(ctx, conf, r, app)
}

func main() {
	if BuildID == "" {
		BuildID = VERSION
	}

	conf := initConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil {
		log.Error().Err(err).Msg("démarrage impossible")
		stop()
		os.Exit(1)
	}
}
