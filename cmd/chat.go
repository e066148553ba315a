package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/compass/internal/ai/gemini"
	"github.com/spigell/compass/internal/conversation"
	"github.com/spigell/compass/internal/logger"
	"github.com/spigell/compass/internal/secrets"
)

const (
	providerGemini = "gemini"

	exitWord = "/exit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Describe your work experience; every message is turned into changes of the collected experiences",
	Run: func(cmd *cobra.Command, _ []string) {
		runChat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("message", "m", "", "process a single message and exit")
	chatCmd.Flags().String("model", "", "gemini model to use")

	viper.BindPFlag("ai.gemini.model", chatCmd.Flags().Lookup("model"))
}

func runChat(cmd *cobra.Command) {
	ctx := context.Background()
	l, config := setup()

	extractor, err := newExtractor(ctx, l, config)
	if err != nil {
		l.Fatal("creating an operation extractor", zap.Error(err))
	}

	collector := newCollector(l, config, extractor)

	if message, _ := cmd.Flags().GetString("message"); message != "" {
		result, err := collector.Turn(ctx, message)
		if err != nil {
			l.Fatal("processing the message", zap.Error(err))
		}
		printTurn(os.Stdout, result)
		return
	}

	prompt := promptui.Prompt{
		Label: "Tell me about your work (" + exitWord + " to quit)",
	}

	for {
		message, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return
		}
		if err != nil {
			l.Fatal("reading a message", zap.Error(err))
		}

		message = strings.TrimSpace(message)
		if message == exitWord {
			return
		}

		result, err := collector.Turn(ctx, message)
		switch {
		case errors.Is(err, conversation.ErrEmptyMessage):
			continue
		case err != nil:
			// The turn is not committed, so the user can simply repeat the message.
			l.Error("processing the message", zap.Error(err))
			continue
		}

		printTurn(os.Stdout, result)
	}
}

func newExtractor(ctx context.Context, l *zap.Logger, config *Config) (*gemini.Extractor, error) {
	ai := config.AI
	if ai == nil {
		ai = &AIConfig{}
	}
	if ai.Gemini == nil {
		ai.Gemini = &GeminiConfig{}
	}

	if provider := strings.ToLower(strings.TrimSpace(ai.Provider)); provider != "" && provider != providerGemini {
		return nil, errors.New("unsupported ai provider: " + ai.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  ai.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: ai.Gemini.APIKey,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, ai.Gemini.Model, ai.Gemini.MaxRetries, l.Named(providerGemini))
	if err != nil {
		return nil, err
	}

	extractorLogger := logger.WithCommonFields(l.Named(providerGemini), providerGemini, generator.Model())
	extractorLogger.Debug("operation extractor ready")

	return gemini.NewExtractor(generator, ai.Gemini.MaxLogLength, extractorLogger), nil
}
