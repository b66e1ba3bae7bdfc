package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"lemur-calendar/core"
	"lemur-calendar/pkg/resources"
	"lemur-calendar/pkg/servers"
)

const shutdownTimeout = 15 * time.Second

var (
	name    = "lemur-calendar"
	version = "1.0"
)

func main() {
	app := &cli.App{
		Name:    name,
		Version: version,
		Usage:   "Merges local meetings and external calendars into a single schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: "local", EnvVars: []string{"APP_ENV"}, Usage: "Deployment environment reported in logs and telemetry."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		DefaultCommand: "serve",
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("application failed")
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the REST API and the debug server.",
		Action: func(c *cli.Context) error {
			return serve(c.Context, c.String("env"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database tables and exit.",
		Action: func(c *cli.Context) error {
			ctx := resources.Default(c.Context, name, version, c.String("env"))

			pool, stopFn, err := resources.CreateDatabaseConnectionPool(ctx)
			if err != nil {
				return err
			}
			defer stopFn(ctx, shutdownTimeout)

			return core.Migrate(ctx, pool)
		},
	}
}

func serve(ctx context.Context, env string) error {
	// 1. Config (Logger base included)
	ctx = resources.Default(ctx, name, version, env)
	startupLogger := log.Ctx(ctx).With().Str("stage", "startup").Str("component", "main").Logger()
	shutdownLogger := log.Ctx(ctx).With().Str("stage", "shut down").Str("component", "main").Logger()

	startupLogger.Info().Msg("application starting up")
	defer shutdownLogger.Info().Msg("application stopped")

	// 2. Bridge zerolog -> OTel Logs (stdout stays, records are also exported)
	hookFn := func(ctx context.Context) (context.Context, error) {
		writer := zerolog.MultiLevelWriter(resources.StdoutWriter(), resources.NewOTelWriter(name))
		log.Logger = log.Logger.Output(writer).Hook(resources.TraceHook{})

		return log.Logger.WithContext(ctx), nil
	}

	// 3. Telemetry (traces/metrics/logs)
	ctx, stopFn, err := resources.Observe(ctx, name, version, env, hookFn)
	defer stopFn(ctx, shutdownTimeout)

	if err != nil {
		shutdownLogger.Error().Err(err).Msg("unable to setup otel telemetry")
		return err
	}

	// 4. Core resources
	pool, _, err := resources.CreateDatabaseConnectionPool(ctx)
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("unable to create database connection pool")
		return err
	}

	location := resources.Location()

	// 5. Wiring
	repo := core.NewRepository(pool)
	meetings := core.NewMeetingRepository(pool)
	connections := core.NewConnectionStore(pool, core.ProviderGoogle)

	oauthConfig := core.NewGoogleOAuthConfig(
		viper.GetString("GOOGLE_CLIENT_ID"),
		viper.GetString("GOOGLE_CLIENT_SECRET"),
		viper.GetString("GOOGLE_REDIRECT_URI"),
	)
	google := core.NewGoogleCalendarSource(connections, oauthConfig, viper.GetString("GOOGLE_CALENDAR_ID"), location, core.SystemClock)

	sources := []core.EventSource{repo, meetings, google}

	feeds := core.ParseICSFeeds(viper.GetStringSlice("CALENDAR_ICS_FEEDS"))
	if len(feeds) > 0 {
		sources = append(sources, core.NewICSSource(&http.Client{Timeout: viper.GetDuration("CALENDAR_SOURCE_TIMEOUT")}, location, feeds...))
	}

	aggregator := core.NewAggregator(viper.GetDuration("CALENDAR_SOURCE_TIMEOUT"), sources...)
	calendar := core.NewCalendarService(aggregator, google, core.SystemClock, core.CalendarConfig{
		Location:      location,
		LookbackDays:  viper.GetInt("CALENDAR_LOOKBACK_DAYS"),
		LookaheadDays: viper.GetInt("CALENDAR_LOOKAHEAD_DAYS"),
	})
	handlers := core.NewHandlers(repo, calendar)

	// 6. Daemons/servers setup
	gin.SetMode(gin.ReleaseMode)

	restHandler := gin.New()
	restHandler.Use(gin.Recovery())
	restHandler.Use(resources.TracerMiddleware(name))
	restHandler.Use(resources.MeterMiddleware(name))

	restHandler.POST("/events", handlers.PostEvents)
	restHandler.GET("/events/:id", handlers.GetEvents)
	restHandler.PUT("/events/:id", handlers.PutEvents)
	restHandler.DELETE("/events/:id", handlers.DeleteEvents)

	calendarRoutes := restHandler.Group("/calendar/:user_id")
	calendarRoutes.GET("/meetings", handlers.GetMeetings)
	calendarRoutes.GET("/upcoming", handlers.GetUpcoming)
	calendarRoutes.GET("/previous", handlers.GetPrevious)
	calendarRoutes.GET("/grid", handlers.GetMonthGrid)
	calendarRoutes.GET("/status", handlers.GetCalendarStatus)

	debugHandler := http.NewServeMux()
	debugHandler.HandleFunc("/debug/pprof/", pprof.Index)
	debugHandler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugHandler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugHandler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugHandler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 7. Daemons/servers lifecycle
	errChan := make(chan error, 16)

	baseName, baseServer := servers.BuildBaseServer(pool)
	stopBase := servers.Start(ctx, baseName, baseServer, errChan)
	defer stopBase(ctx, shutdownTimeout)

	debugName, debugServer := servers.BuildHttpServer("debug-server", viper.GetString("HTTP_HOST"), viper.GetString("DEBUG_PORT"), debugHandler)
	stopDebug := servers.Start(ctx, debugName, debugServer, errChan)
	defer stopDebug(ctx, shutdownTimeout)

	restName, restServer := servers.BuildHttpServer("rest-server", viper.GetString("HTTP_HOST"), viper.GetString("HTTP_PORT"), restHandler)
	stopRest := servers.Start(ctx, restName, restServer, errChan)
	defer stopRest(ctx, shutdownTimeout)

	startupLogger.Info().Msg("application running")

	// 8. Wait for shutdown signal
	notifyCtx, cancelNotifyFn := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancelNotifyFn()

	select {
	case <-notifyCtx.Done():
		shutdownLogger.Info().Msg("application shutdown requested")
	case runErr := <-errChan:
		shutdownLogger.Error().Err(runErr).Msg("runtime error")
		return runErr
	}

	return nil
}
