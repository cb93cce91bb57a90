package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmeyers/combatlog/internal/config"
	"github.com/jmeyers/combatlog/internal/discover"
	"github.com/jmeyers/combatlog/internal/event"
	"github.com/jmeyers/combatlog/internal/index"
	"github.com/jmeyers/combatlog/internal/pipeline"
	"github.com/jmeyers/combatlog/internal/watch"
)

const version = "0.1.0"

var (
	verbose bool
	dataDir string
	outDir  string
	workers int
	noIndex bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "combatlog",
	Short: "Event correlation and segmentation over game session logs",
	Long: `combatlog reconstructs causally-related groups of events from flat,
interleaved logs of turn-based game sessions and slices them into
(context, action, result) tuples for downstream dataset building.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract tuples from every session under the data root",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dirs, err := discover.Sessions(cfg.DataDir)
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			fmt.Println("no sessions found")
			return nil
		}

		results := pipeline.Batch(cmd.Context(), dirs, pipelineOptions(cfg))

		if cfg.Index.Enabled && !noIndex {
			if err := recordResults(cfg.Index.Path, results); err != nil {
				logger.Warn("could not update index", zap.Error(err))
			}
		}

		var kept, failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
				continue
			}
			if r.Emitted() {
				kept++
			}
		}
		fmt.Printf("extract finished: %d sessions -> %d with output (%d discarded, %d failed)\n",
			len(results), kept, len(results)-kept-failed, failed)
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session <dir>",
	Short: "Extract tuples from a single session directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		res := pipeline.Session(args[0], pipelineOptions(cfg))
		if res.Err != nil {
			return res.Err
		}

		if !res.Emitted() {
			fmt.Printf("%s: no tuples emitted (%d events)\n", res.SessionID, res.Stats.Events)
			return nil
		}
		fmt.Printf("%s: %d events, rp=%d narration=%d tagged=%d\n",
			res.SessionID, res.Stats.Events, res.RPTuples, res.NarrationTuples, res.TaggedTuples)
		for _, p := range res.Outputs {
			fmt.Printf("  wrote %s\n", p)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the data root and extract sessions as they settle",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
		logger.Info("watching", zap.String("data_dir", cfg.DataDir))
		err = watch.Run(ctx, cfg.DataDir, settle, pipelineOptions(cfg))
		if err != nil && ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if outDir != "" {
			cfg.OutDir = outDir
		}
		path, err := config.WriteDefault(cfg.DataDir, cfg.OutDir)
		if err != nil {
			return err
		}
		fmt.Printf("config: %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("combatlog v%s\n", version)
	},
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		OutDir:          cfg.OutDir,
		RP:              cfg.RP.Enabled,
		RPAutomation:    cfg.RP.IncludeAutomation,
		Narration:       cfg.Narration.Enabled,
		Tagged:          cfg.Tagger.Enabled,
		TaggerMinTokens: cfg.Tagger.MinTokens,
		BotID:           event.UserID(cfg.Tagger.BotAuthorID),
		Workers:         cfg.Workers,
		ChunkSize:       cfg.ChunkSize,
		Logger:          logger,
	}
}

func recordResults(indexPath string, results []pipeline.Result) error {
	ix, err := index.Open(indexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	at := time.Now().UTC()
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for extractor, n := range map[string]int{
			"rp":        r.RPTuples,
			"narration": r.NarrationTuples,
			"tagged":    r.TaggedTuples,
		} {
			if n == 0 {
				continue
			}
			err := ix.Record(index.Extraction{
				SessionID:   r.SessionID,
				Extractor:   extractor,
				Tuples:      n,
				Events:      r.Stats.Events,
				OutputPath:  outputFor(r.Outputs, extractor),
				ProcessedAt: at,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func outputFor(outputs []string, extractor string) string {
	for _, p := range outputs {
		if strings.Contains(p, string(os.PathSeparator)+extractor+string(os.PathSeparator)) {
			return p
		}
	}
	return ""
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "override data root")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "override output root")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "override worker count")
	extractCmd.Flags().BoolVar(&noIndex, "no-index", false, "skip recording results in the index")

	rootCmd.AddCommand(extractCmd, sessionCmd, watchCmd, initCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "combatlog: %v\n", err)
		os.Exit(1)
	}
}
