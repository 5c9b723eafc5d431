package cli

import (
	"github.com/spf13/cobra"

	"subtrans/internal/config"
)

// translateFlags are the flags shared by every command that ends up
// running translations. Only flags the user actually set override the
// environment, so precedence stays flags > env > defaults.
type translateFlags struct {
	targetLang  string
	sourceLang  string
	output      string
	batchSize   int
	noBilingual bool
}

func (f *translateFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.targetLang, "target-lang", "t", "", "target language, e.g. \"German\" (env TARGET_LANG)")
	flags.StringVarP(&f.sourceLang, "source-lang", "s", "", "source language, detected from the file when omitted (env SOURCE_LANG)")
	flags.StringVarP(&f.output, "output", "o", "", "output file, or directory for the default name (env OUTPUT_PATH)")
	flags.IntVarP(&f.batchSize, "batch-size", "b", 0, "subtitle lines per LLM request (env BATCH_SIZE)")
	flags.BoolVar(&f.noBilingual, "no-bilingual", false, "write translated text only instead of translated plus source")
}

func (f *translateFlags) configOptions(cmd *cobra.Command) []config.Option {
	flags := cmd.Flags()

	var opts []config.Option
	if flags.Changed("target-lang") {
		opts = append(opts, config.WithTargetLanguage(f.targetLang))
	}
	if flags.Changed("source-lang") {
		opts = append(opts, config.WithSourceLanguage(f.sourceLang))
	}
	if flags.Changed("output") {
		opts = append(opts, config.WithOutputPath(f.output))
	}
	if flags.Changed("batch-size") {
		opts = append(opts, config.WithBatchSize(f.batchSize))
	}
	if flags.Changed("no-bilingual") {
		opts = append(opts, config.WithBilingual(!f.noBilingual))
	}
	return opts
}
