package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/applicant-ranker/internal/logger"
)

var errNoJobID = errors.New("job id is required")

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank the applications of a job once and print them as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().String("job", "", "job posting id; asked for interactively when omitted")
	recommendCmd.Flags().Int("top", 0, "number of candidates to return (default is server.default-top-n)")
}

func runRecommend(cmd *cobra.Command) {
	// stdout carries the result
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), logger.WithOutput("stderr"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jobID, _ := cmd.Flags().GetString("job")
	if strings.TrimSpace(jobID) == "" && isInteractive() {
		jobID, err = promptJobID()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
	if strings.TrimSpace(jobID) == "" {
		logger.Fatal("exiting", zap.Error(errNoJobID))
	}

	topN, _ := cmd.Flags().GetInt("top")
	if topN == 0 {
		topN = config.Server.DefaultTopN
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.RequestTimeout)
	defer cancel()

	engine, cleanup, err := newEngine(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the recommendation engine", zap.Error(err))
	}
	defer cleanup()

	results, err := engine.Recommend(ctx, jobID, topN)
	if err != nil {
		logger.Fatal("computing recommendations", zap.Error(err))
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		logger.Fatal("printing recommendations", zap.Error(err))
	}
}

func promptJobID() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Job id",
		Validate: validateJobID,
	}
	jobID, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(jobID), nil
}

func validateJobID(input string) error {
	if strings.TrimSpace(input) == "" {
		return errNoJobID
	}
	return nil
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
