package resources

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.SetDefault("HTTP_HOST", "localhost")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("DEBUG_PORT", "6060")

	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "lemur")

	viper.SetDefault("OTEL_ENABLED", true)
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	viper.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	viper.SetDefault("GOOGLE_REDIRECT_URI", "urn:ietf:wg:oauth:2.0:oob")

	viper.SetDefault("CALENDAR_TIMEZONE", "UTC")
	viper.SetDefault("CALENDAR_LOOKBACK_DAYS", 30)
	viper.SetDefault("CALENDAR_LOOKAHEAD_DAYS", 30)
	viper.SetDefault("CALENDAR_SOURCE_TIMEOUT", 10*time.Second)
	viper.SetDefault("CALENDAR_ICS_FEEDS", []string{})
}

// Default loads configuration from the environment (and an optional .env file),
// sets up the global zerolog logger and returns ctx carrying it.
func Default(ctx context.Context, name string, version string, env string) context.Context {
	// a missing .env is fine, the environment still applies
	_ = godotenv.Load()

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	log.Logger = zerolog.New(StdoutWriter()).With().Timestamp().
		Str("service.name", name).
		Str("service.version", version).
		Str("deployment.environment", env).
		Logger()

	return log.Logger.WithContext(ctx)
}

// StdoutWriter is the writer selected by LOG_FORMAT: "console" for humans, JSON otherwise.
func StdoutWriter() io.Writer {
	if viper.GetString("LOG_FORMAT") == "console" {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return os.Stdout
}

// Location resolves the configured default viewer time zone.
func Location() *time.Location {
	loc, err := time.LoadLocation(viper.GetString("CALENDAR_TIMEZONE"))
	if err != nil {
		log.Warn().Err(err).Str("tz", viper.GetString("CALENDAR_TIMEZONE")).Msg("unknown time zone, falling back to UTC")
		return time.UTC
	}

	return loc
}
