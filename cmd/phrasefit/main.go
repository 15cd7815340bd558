package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/phrasefit/internal/config"
	"github.com/crimson-sun/phrasefit/internal/logging"
	"github.com/crimson-sun/phrasefit/internal/pipeline"
)

func main() {
	// Set up graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "phrasefit: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// cli holds the configuration shared by every command.
type cli struct {
	cfg config.Config

	dir       string
	input     string
	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "phrasefit",
		Short: "Train a TF-IDF + logistic regression phrase classifier",
		Long: `phrasefit reads labelled phrases from a zipped CSV with "phrase" and
"target" columns, fits a TF-IDF vectorizer (unigrams and bigrams, at most
10000 features) and a logistic regression classifier, and writes both
artifacts into the output directory.`,
		Example: `  phrasefit
  phrasefit --dir homework --input files/input/sentences.csv.zip
  phrasefit predict "great service" "bad experience"`,
		Version:           config.Version,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.train,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.dir, "dir", "", "Output directory for the artifacts (PHRASEFIT_DIR)")
	flags.StringVar(&c.input, "input", "", "Zipped CSV dataset (PHRASEFIT_INPUT)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error (PHRASEFIT_LOG_LEVEL)")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format: text, json (PHRASEFIT_LOG_FORMAT)")

	cmd.AddCommand(c.newPredictCommand())
	return cmd
}

// setup resolves configuration from the environment and flags, validates it
// and installs the logger. Logs go to stderr; stdout carries results only.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir = c.dir
	}
	if flags.Changed("input") {
		cfg.InputPath = c.input
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(cmd.ErrOrStderr(), cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	c.cfg = cfg
	return nil
}

func (c *cli) train(cmd *cobra.Command, _ []string) error {
	res, err := pipeline.New(c.cfg).Run(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved vectorizer to: %s\n", res.VectorizerPath)
	fmt.Fprintf(out, "Saved classifier to: %s\n", res.ClassifierPath)
	return nil
}
