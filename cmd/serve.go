package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/applicant-ranker/internal/filtering"
	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (overrides server.listen)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the applicant-ranker",
		zap.String("version", version),
		zap.String("store", config.Store.Driver),
		zap.String("embedding_provider", config.Embedding.Provider),
		zap.String("language_strategy", string(config.Language.Strategy)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the recommendation engine", zap.Error(err))
	}
	defer cleanup()

	for _, status := range filtering.Describe(engine.Filters()) {
		logger.Info("candidate filter",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	if err := server.New(config.Server, engine, logger).Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
