package pfconfig

import (
	"fmt"
	"log/syslog"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	VisitorKeyAuto    = "auto"
	VisitorKeyIP      = "ip"
	VisitorKeySession = "session"

	DefaultReconcile = "10 0 * * *"
)

type Config struct {
	TrustedProxies  []string        `yaml:"trustedproxies"`
	TrustedPlatform string          `yaml:"trustedplatform"`
	Database        DatabaseConfig  `yaml:"database"`
	StaticPath      string          `yaml:"staticpath"`
	Production      bool            `yaml:"production"`
	Listen          ListenConfig    `yaml:"listen"`
	Logger          LoggerConfig    `yaml:"logger"`
	Session         SessionConfig   `yaml:"session"`
	Cors            CorsConfig      `yaml:"cors"`
	Contact         ContactConfig   `yaml:"contact"`
	Analytics       AnalyticsConfig `yaml:"analytics"`
}

type AnalyticsConfig struct {
	// auto, ip ou session
	VisitorKey string `yaml:"visitorkey"`
	// expression cron de la réconciliation nocturne, vide pour désactiver
	Reconcile string `yaml:"reconcile"`
	// base GeoLite2/GeoIP2 Country, optionnelle
	GeoIP string `yaml:"geoip"`
}

type ContactConfig struct {
	Captcha bool `yaml:"captcha"`
	// messages autorisés par minute et par IP, 0 pour désactiver
	RateLimit int64 `yaml:"ratelimit"`
}

type CorsConfig struct {
	Origins []string `yaml:"origins"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Db   int    `yaml:"db"`
}

type LoggerConfig struct {
	Level  string             `yaml:"level"`
	File   LoggerFileConfig   `yaml:"file"`
	Syslog LoggerSyslogConfig `yaml:"syslog"`
}

type LoggerFileConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`
	MaxBackups int    `yaml:"maxbackups"`
	MaxAge     int    `yaml:"maxage"`
	Compress   bool   `yaml:"compress"`
}

type LoggerSyslogConfig struct {
	Enable   bool            `yaml:"enable"`
	Protocol string          `yaml:"protocol"`
	Address  string          `yaml:"address"`
	Tag      string          `yaml:"tag"`
	Priority syslog.Priority `yaml:"priority"`
}

type ListenConfig struct {
	Website string `yaml:"website"`
	Metrics string `yaml:"metrics"`
}

type DatabaseConfig struct {
	Redis RedisConfig `yaml:"redis"`
	Db    string      `yaml:"db"`
	Path  string      `yaml:"path"`
	Dsn   string      `yaml:"dsn"`
}

func CreateExampleConfig(filename string) (string, error) {
	example := &Config{
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "./portfolio.db",
		},
		StaticPath: "./static",
		Production: false,
		Logger: LoggerConfig{
			Level: "info",
		},
		Listen: ListenConfig{
			Website: "0.0.0.0:3000",
		},
		Cors: CorsConfig{
			Origins: []string{"http://localhost:5500", "http://127.0.0.1:5500"},
		},
		Contact: ContactConfig{
			Captcha:   false,
			RateLimit: 5,
		},
		Analytics: AnalyticsConfig{
			VisitorKey: VisitorKeyAuto,
			Reconcile:  DefaultReconcile,
		},
	}

	if filename == "/etc/" {
		example.Listen.Website = "127.0.0.1:3000"
		example.Listen.Metrics = "127.0.0.1:9090"
		example.Production = true
		example.Database.Path = "/var/lib/portfolio/sqlite.db"
		example.StaticPath = "/var/lib/portfolio/static"
		example.Logger.File = LoggerFileConfig{
			Enable:     true,
			Path:       "/var/log/portfolio/portfolio.log",
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     7,
			Compress:   true,
		}
		filename = "/etc/portfolio/config.yaml"
	}

	return filename, WriteConfigYaml(filename, example)
}

func WriteConfigYaml(filename string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// Charger la configuration YAML
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("impossible de lire le fichier %s: %v", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("erreur de parsing YAML: %v", err)
	}

	return &config, nil
}

// LoadAndConvertConfig charge, surcharge par l'environnement puis valide la configuration
func LoadAndConvertConfig(filename string) (*Config, error) {
	conf, err := LoadConfig(filename)
	if err != nil {
		return nil, fmt.Errorf("erreur chargement config: %v", err)
	}

	ApplyEnv(conf, os.Getenv)

	if err := Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// ApplyEnv surcharge quelques valeurs par les variables d'environnement
func ApplyEnv(conf *Config, getenv func(string) string) {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		host := "0.0.0.0"
		if idx := strings.LastIndex(conf.Listen.Website, ":"); idx > 0 {
			host = conf.Listen.Website[:idx]
		}
		conf.Listen.Website = host + ":" + port
	}
	if dsn := strings.TrimSpace(getenv("DATABASE_DSN")); dsn != "" {
		conf.Database.Db = "mysql"
		conf.Database.Dsn = dsn
	}
	if addr := strings.TrimSpace(getenv("REDIS_ADDR")); addr != "" {
		conf.Database.Redis.Addr = addr
	}
	if origin := strings.TrimSpace(getenv("FRONTEND_URL")); origin != "" {
		conf.Cors.Origins = append(conf.Cors.Origins, origin)
	}
	if strings.TrimSpace(getenv("APP_ENV")) == "production" {
		conf.Production = true
	}
}

// Validate contrôle les valeurs obligatoires et pose les valeurs par défaut
func Validate(conf *Config) error {
	switch conf.Database.Db {
	case "":
		return fmt.Errorf("database.db ne peut pas être vide")
	case "sqlite":
		if conf.Database.Path == "" {
			return fmt.Errorf("database.path ne peut pas être vide")
		}
	case "mysql":
		if conf.Database.Dsn == "" {
			return fmt.Errorf("database.dsn ne peut pas être vide")
		}
	default:
		return fmt.Errorf("le type de database doit etre sqlite ou mysql")
	}

	switch conf.Analytics.VisitorKey {
	case "":
		conf.Analytics.VisitorKey = VisitorKeyAuto
	case VisitorKeyAuto, VisitorKeyIP, VisitorKeySession:
	default:
		return fmt.Errorf("analytics.visitorkey doit etre auto, ip ou session")
	}

	if conf.Contact.RateLimit < 0 {
		return fmt.Errorf("contact.ratelimit ne peut pas être négatif")
	}

	if conf.Listen.Website == "" {
		conf.Listen.Website = "localhost:8080"
	}
	if strings.HasPrefix(conf.Listen.Website, ":") {
		conf.Listen.Website = "localhost" + conf.Listen.Website
	}

	return nil
}

func CreateExample(shouldCreateExample bool, configFile string) {
	if shouldCreateExample {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}

	_, err := os.Stat(configFile)
	if err != nil && os.IsNotExist(err) {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	}
}

func handleExampleCreation(filename string) error {
	if filename == "" {
		filename = "portfolio.yaml"
	}
	filename, err := CreateExampleConfig(filename)
	if err != nil {
		return fmt.Errorf("erreur création exemple: %v", err)
	}

	fmt.Printf("✅ Fichier exemple créé: %s\n", filename)
	return nil
}

func DisplayConfiguration(config *Config, version string) {
	logPrintf("Portfolio version %s", version)
	logPrintf("Mode Production %v", config.Production)

	logPrintf("Database")
	if config.Database.Db == "sqlite" {
		logPrintf("  • Type sqlite")
		logPrintf("  • Path %s", config.Database.Path)
	}
	if config.Database.Db == "mysql" {
		logPrintf("  • Type mysql")
	}
	if config.Database.Redis.Addr != "" {
		logPrintf("  • Compteurs temps réel redis %s", config.Database.Redis.Addr)
	} else {
		logPrintf("  • Compteurs temps réel désactivés")
	}

	logPrintf("Analytics")
	logPrintf("  • Clé visiteur %s", config.Analytics.VisitorKey)
	if config.Analytics.Reconcile != "" {
		logPrintf("  • Réconciliation \"%s\"", config.Analytics.Reconcile)
	} else {
		logPrintf("  • Réconciliation désactivée")
	}
	if config.Analytics.GeoIP != "" {
		logPrintf("  • GeoIP %s", config.Analytics.GeoIP)
	}

	logPrintf("Contact")
	logPrintf("  • Captcha %v", config.Contact.Captcha)
	logPrintf("  • Limite %d messages/minute", config.Contact.RateLimit)

	if len(config.Cors.Origins) > 0 {
		logPrintf("CORS %s", strings.Join(config.Cors.Origins, ", "))
	}

	logPrintf("Logger en level %s", config.Logger.Level)
	if config.Logger.File.Enable {
		logPrintf("  Log en fichier activé")
		logPrintf("  • Path %s", config.Logger.File.Path)
		logPrintf("  • Max size %d", config.Logger.File.MaxSize)
		logPrintf("  • Max age %d", config.Logger.File.MaxAge)
		logPrintf("  • Max backup %d", config.Logger.File.MaxBackups)
		logPrintf("  • Compression %v", config.Logger.File.Compress)
	} else {
		logPrintf("  Log en fichier désactivé")
	}
	if config.Logger.Syslog.Enable {
		logPrintf("  Log en syslog activé")
		logPrintf("  • Protocol %s", config.Logger.Syslog.Protocol)
		logPrintf("  • Address %s", config.Logger.Syslog.Address)
		logPrintf("  • Tag %s", config.Logger.Syslog.Tag)
	} else {
		logPrintf("  Log en syslog désactivé")
	}
}

// Info logue avec printf
func logPrintf(format string, a ...any) {
	log.Info().Msg(fmt.Sprintf(format, a...))
}
