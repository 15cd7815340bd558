package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/phrasefit/internal/engine"
	"github.com/crimson-sun/phrasefit/internal/output"
	"github.com/crimson-sun/phrasefit/internal/output/file"
	"github.com/crimson-sun/phrasefit/internal/output/multi"
	"github.com/crimson-sun/phrasefit/internal/output/stdout"
)

func (c *cli) newPredictCommand() *cobra.Command {
	var (
		format  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "predict <phrase>...",
		Short: "Classify phrases with previously trained artifacts",
		Args:  cobra.MinimumNArgs(1),
		Example: `  phrasefit predict "good service"
  phrasefit predict --format json --output predictions.jsonl "bad experience" "great product"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			eng, err := engine.Load(c.cfg.VectorizerPath(), c.cfg.ClassifierPath())
			if err != nil {
				return err
			}
			slog.Debug("artifacts loaded", "dir", c.cfg.Dir, "classes", eng.Classifier().Classes())

			outputs := []output.Output{stdout.New(cmd.OutOrStdout(), f)}
			if outPath != "" {
				fo, err := file.New(outPath)
				if err != nil {
					return err
				}
				outputs = append(outputs, fo)
			}
			out := multi.New(outputs...)

			preds, err := eng.ClassifyBatch(args)
			if err != nil {
				out.Close()
				return err
			}
			for _, p := range preds {
				if err := out.Write(cmd.Context(), p); err != nil {
					out.Close()
					return err
				}
			}
			return out.Close()
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	cmd.Flags().StringVar(&outPath, "output", "", "Also append predictions as NDJSON to this file")
	return cmd
}
