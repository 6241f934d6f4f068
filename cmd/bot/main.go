package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/bot"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/bot/commands"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/config"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/database"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/discord"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/identlink"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rally"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/sweeper"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/web"
)

func main() {
	logger.Init()
	cfg := config.Load()

	// Storage
	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}

	memberRepo := membership.NewRepository(db)
	if err := memberRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate members table")
	}
	settingsRepo := guildsettings.NewRepository(db)
	if err := settingsRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate guild settings table")
	}

	// Services
	members := membership.NewService(memberRepo)
	settings := guildsettings.NewService(settingsRepo)

	links := identlink.NewService(identlink.Options{
		ClientID:     cfg.UCIClientID,
		ClientSecret: cfg.UCIClientSecret,
		RedirectURI:  cfg.UCIRedirectURI,
		AuthorizeURL: cfg.UCIAuthorizeURL,
		TokenURL:     cfg.UCITokenURL,
		ProfileURL:   cfg.UCIProfileURL,
	}, identlink.NewRedisStateStore(database.GetRedis()))

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	catalog, err := messages.Load(cfg.MessagesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load message templates")
	}

	// Discord gateway
	client, err := discord.New(cfg.DiscordToken)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to create Discord session")
	}

	dispatcher := rally.New(settings, client, publisher)
	discordBot := bot.New(client, members, settings, dispatcher, catalog, commands.Deps{
		Members:  members,
		Settings: settings,
		Gateway:  client,
		Catalog:  catalog,
		Events:   publisher,
		BaseURL:  cfg.BaseURL(),
	})

	if err := discordBot.Start(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Discord")
	}
	defer discordBot.Stop()

	// Timeout sweep
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.New(members, settings, client, catalog, publisher, cfg.SweepInterval).Start(ctx)

	// OAuth web surface
	handler := web.NewHandler(links, members, settings, client, catalog, publisher)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      web.NewRouter(handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Verification server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Stopped")
}
