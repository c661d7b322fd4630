package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tazhate/familyschedule/config"
	"github.com/tazhate/familyschedule/internal/bot"
	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/clients/caldav"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/scheduler"
	"github.com/tazhate/familyschedule/internal/service"
	"github.com/tazhate/familyschedule/internal/storage"
	"github.com/urfave/cli/v2"
)

// clock is replaced in tests to pin "today".
var clock calendar.Clock = calendar.SystemClock{}

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "familyschedule",
		Usage: "Family weekly activity schedule with Telegram digests and CalDAV push.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging.", EnvVars: []string{"DEBUG"}},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides DATABASE_PATH)."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			weekCommand(),
			todayCommand(),
			exportICSCommand(),
			exportJSONCommand(),
			importCommand(),
			pushCommand(),
			calendarsCommand(),
		},
	}
}

// runtime holds the wired services shared by every command.
type runtime struct {
	cfg        *config.Config
	store      *storage.Storage
	caldav     *caldav.Client
	activities *service.ActivityService
	family     *service.FamilyService
	schedule   *service.ScheduleService
	calendar   *service.CalendarService
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if p := c.String("db"); p != "" {
		cfg.DatabasePath = p
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, Dir: cfg.LogDir}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	// Week numbers and clock times are wall-clock values of the family's zone.
	time.Local = cfg.Timezone

	roster, err := config.LoadFamily(cfg.FamilyFile)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	activities := service.NewActivityService(store, cfg.Timezone)
	family := service.NewFamilyService(store, roster)

	rt := &runtime{
		cfg:        cfg,
		store:      store,
		activities: activities,
		family:     family,
		schedule:   service.NewScheduleService(activities, family, clock),
	}

	var client service.CalendarClient
	if cfg.CalDAVEnabled() {
		rt.caldav = caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
		rt.caldav.SetCalendarPath(cfg.CalDAVCalendar)
		client = rt.caldav
	}
	rt.calendar = service.NewCalendarService(activities, store, client, cfg.Timezone, clock)

	return rt, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		logger.Warn("close storage", "err", err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, the Telegram bot and the scheduled jobs.",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			cfg := rt.cfg

			rt.activities.Subscribe(func(ch service.Change) {
				logger.Debug("schedule changed", "kind", ch.Kind, "activities", len(ch.Activities), "deleted", len(ch.DeletedIDs))
			})

			if cfg.APIUsername == "" {
				logger.Warn("API_USERNAME not set, HTTP API is unauthenticated")
			}

			mux := http.NewServeMux()
			bot.NewAPI(cfg, rt.activities, rt.schedule, rt.family, rt.calendar).Register(mux)

			sched := scheduler.New(cfg, rt.schedule, rt.calendar)

			var tgBot *bot.Bot
			if cfg.TelegramEnabled() {
				tgBot, err = bot.New(cfg, rt.schedule, rt.activities, rt.family)
				if err != nil {
					return fmt.Errorf("init bot: %w", err)
				}
				if tgBot.UsesWebhook() {
					if err := tgBot.SetupWebhook(); err != nil {
						return fmt.Errorf("setup webhook: %w", err)
					}
					tgBot.Register(mux)
				}
				sched.SetSender(tgBot)
			} else {
				logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
			}

			server := bot.NewServer(cfg.ServerPort, mux)
			server.Start()

			// Context for graceful shutdown
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			go func() {
				if err := sched.Start(ctx); err != nil {
					logger.Error("scheduler error", "err", err)
				}
			}()

			if tgBot != nil {
				go func() {
					if err := tgBot.Start(ctx); err != nil {
						logger.Error("bot error", "err", err)
					}
				}()
			}

			logger.Info("familyschedule started", "port", cfg.ServerPort, "tz", cfg.Timezone.String())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down")

			cancel()
			sched.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := server.Stop(shutdownCtx); err != nil {
				logger.Error("stop http server", "err", err)
			}

			logger.Info("familyschedule stopped")
			return nil
		},
	}
}
