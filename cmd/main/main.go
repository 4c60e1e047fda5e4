package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries what every command needs once the config has been loaded.
type app struct {
	configPath string
	config     *Config
	logger     *slog.Logger

	// flag values, applied over the config file when set
	seed        uint64
	minLength   int
	maxLength   int
	maxAttempts int
	count       int
	tokenizer   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "namegen",
		Short:         "Generate pronounceable names from a Markov chain",
		Long:          "namegen learns which letters follow which from a list of example words and invents new words that sound like them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "./config.json", "path to a JSON or YAML config file")
	flags.Uint64Var(&a.seed, "seed", 0, "random seed (0 seeds from the clock)")
	flags.IntVar(&a.minLength, "min-length", 0, "reject generated words with this many symbols or fewer")
	flags.IntVar(&a.maxLength, "max-length", 0, "stop words at this many symbols (0 for no limit)")
	flags.IntVar(&a.maxAttempts, "max-attempts", 0, "walks to try per word before giving up")
	flags.IntVar(&a.count, "count", 0, "number of words to generate")
	flags.StringVar(&a.tokenizer, "tokenizer", "", "symbol tokenizer: char or word")

	root.AddCommand(
		newGenerateCmd(a),
		newTrainCmd(a),
		newStatsCmd(a),
		newPruneCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

// load reads the config file, applies any flags that were set and builds the
// logger.
func (a *app) load(cmd *cobra.Command) error {
	config, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	g := config.Generation
	if flags.Changed("seed") {
		g.Seed = a.seed
	}
	if flags.Changed("min-length") {
		g.MinLength = a.minLength
	}
	if flags.Changed("max-length") {
		g.MaxLength = a.maxLength
	}
	if flags.Changed("max-attempts") {
		g.MaxAttempts = a.maxAttempts
	}
	if flags.Changed("count") {
		g.Count = a.count
	}
	if flags.Changed("tokenizer") {
		g.Tokenizer = a.tokenizer
	}
	if err = config.Validate(); err != nil {
		return err
	}

	a.config = config
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
	return nil
}

// newRand returns the generator for this run, seeded from the config or the
// clock.
func (a *app) newRand() *rand.Rand {
	seed := a.config.Generation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	a.logger.Debug("Random source seeded", slog.Uint64("seed", seed))
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
