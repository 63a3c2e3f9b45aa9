package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/database"
	"github.com/telecare/telehealth_api/handlers"
	"github.com/telecare/telehealth_api/jobs"
	"github.com/telecare/telehealth_api/logger"
	"github.com/telecare/telehealth_api/notifications"
	"github.com/telecare/telehealth_api/payments"
	"github.com/telecare/telehealth_api/routes"
	"github.com/telecare/telehealth_api/services"
	"github.com/telecare/telehealth_api/storage"
	"github.com/telecare/telehealth_api/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telehealth-api",
		Short: "Telecare booking API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(settings.Env, settings.LogLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(normalizeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.ConnectDB(); err != nil {
				return err
			}
			return database.Migrate(database.DB)
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account from ADMIN_* settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.ConnectDB(); err != nil {
				return err
			}
			return database.SeedAdmin(database.DB)
		},
	}
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-statuses",
		Short: "Rewrite legacy booked schedules to pending or available",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.ConnectDB(); err != nil {
				return err
			}
			withPatient, withoutPatient, err := database.NormalizeLegacyStatuses(database.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booked -> pending: %d, booked -> available: %d\n", withPatient, withoutPatient)
			return nil
		},
	}
}

func runServer() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	if err := database.ConnectDB(); err != nil {
		return err
	}
	if err := database.Migrate(database.DB); err != nil {
		return err
	}
	if err := database.SeedAdmin(database.DB); err != nil {
		logger.Log.Error().Err(err).Msg("🔥 Admin seed failed")
	}
	notifications.InitEmailService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := config.Location()
	dispatcher := notifications.NewDispatcher(database.DB, notifications.EmailClient, notifications.NewExpoPusher(), websocket.Emitter{})
	outbox := services.NewOutbox(dispatcher)

	schedules := services.NewScheduleService(database.DB, outbox, services.WithLocation(loc))
	gateway := payments.NewPayOSClientFromConfig()
	subscriptions := services.NewSubscriptionService(database.DB, gateway,
		schedules.Quota(), outbox, settings.APIURL, settings.FrontendURL)
	balances := services.NewBalanceService(database.DB, gateway, outbox, settings.APIURL, settings.FrontendURL)
	subscriptions.SetRecharges(balances)

	var images services.ImageRemover
	if store, err := storage.NewCloudinaryStoreFromConfig(); err != nil {
		logger.Log.Warn().Err(err).Msg("Cloudinary not configured, blog images will not be removed")
	} else {
		images = store
	}

	handlers.Setup(handlers.Services{
		Schedules:     schedules,
		Subscriptions: subscriptions,
		Feedback:      services.NewFeedbackService(database.DB, outbox),
		Messaging:     services.NewMessagingService(database.DB, schedules, outbox),
		Doctors:       services.NewDoctorService(database.DB, schedules.Quota(), outbox),
		Balances:      balances,
		Blogs:         services.NewBlogService(database.DB, images, outbox),
	})

	go websocket.RunHub()
	go dispatcher.Run(ctx)

	c := cron.New(cron.WithLocation(loc))
	if err := jobs.Register(c, jobs.Deps{
		DB:            database.DB,
		Schedules:     schedules,
		Subscriptions: subscriptions,
		Balances:      balances,
		Dispatcher:    dispatcher,
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()
	logger.Log.Info().Msg("✅ Cron jobs scheduled successfully.")

	app := routes.NewApp()
	routes.Register(app, settings.WebhookRateLimitPerSecond)

	go func() {
		<-ctx.Done()
		logger.Log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("🔥 Server shutdown failed")
		}
	}()

	logger.Log.Info().Str("port", settings.Port).Msg("✅ Server is running")
	if err := app.Listen(":" + settings.Port); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}
