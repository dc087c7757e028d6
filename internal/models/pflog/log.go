package pflog

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfolio/internal/models/pfconfig"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// syslogLevelWriter route chaque ligne zerolog vers la priorité syslog correspondante
type syslogLevelWriter struct {
	writer *syslog.Writer
}

// Setup construit le logger global à partir de la configuration.
// Les writers fichier et syslog sont retournés pour être fermés à l'arrêt.
func Setup(cfg pfconfig.LoggerConfig, production bool) ([]io.Closer, error) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return path.Join(path.Base(path.Dir(file)), path.Base(file)) + ":" + strconv.Itoa(line)
	}
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var (
		writers []io.Writer
		closers []io.Closer
	)

	if !production {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	if cfg.File.Enable {
		fw, err := newFileWriter(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("log fichier: %w", err)
		}
		writers = append(writers, fw)
		closers = append(closers, fw)
	}

	if cfg.Syslog.Enable {
		sw, err := newSyslogWriter(cfg.Syslog)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		writers = append(writers, sw)
		closers = append(closers, sw.writer)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).
		With().
		Timestamp().
		Caller().
		Str("service", "portfolio").
		Logger()

	environment := "developpement"
	if production {
		environment = "production"
	}
	log.Info().
		Str("environment", environment).
		Str("level", cfg.Level).
		Bool("log_to_file", cfg.File.Enable).
		Bool("log_to_syslog", cfg.Syslog.Enable).
		Msg("Logger initialized")

	return closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

func (w *syslogLevelWriter) Write(p []byte) (int, error) {
	msg := string(p)

	var err error
	switch levelOf(msg) {
	case "trace", "debug":
		err = w.writer.Debug(msg)
	case "warn":
		err = w.writer.Warning(msg)
	case "error":
		err = w.writer.Err(msg)
	case "fatal", "panic":
		err = w.writer.Crit(msg)
	default:
		err = w.writer.Info(msg)
	}
	return len(p), err
}

// levelOf lit le champ "level" d'une ligne JSON zerolog
func levelOf(msg string) string {
	key := `"` + zerolog.LevelFieldName + `":"`
	start := strings.Index(msg, key)
	if start == -1 {
		return ""
	}
	start += len(key)

	end := strings.IndexByte(msg[start:], '"')
	if end == -1 {
		return ""
	}
	return msg[start : start+end]
}

// ParseLevel retourne info pour toute valeur inconnue
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newFileWriter(cfg pfconfig.LoggerFileConfig) (*lumberjack.Logger, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("logger.file.path ne peut pas être vide")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, err
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

func newSyslogWriter(cfg pfconfig.LoggerSyslogConfig) (*syslogLevelWriter, error) {
	tag := cfg.Tag
	if tag == "" {
		tag = "portfolio"
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = syslog.LOG_INFO | syslog.LOG_LOCAL0
	}

	var (
		writer *syslog.Writer
		err    error
	)
	if cfg.Protocol == "" || cfg.Address == "" {
		writer, err = syslog.New(priority, tag)
	} else {
		writer, err = syslog.Dial(cfg.Protocol, cfg.Address, priority, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("connexion syslog impossible: %w", err)
	}

	return &syslogLevelWriter{writer: writer}, nil
}
