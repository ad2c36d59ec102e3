package cmd

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osmflatgo/internal/compiler"
	"github.com/wegman-software/osmflatgo/internal/config"
	"github.com/wegman-software/osmflatgo/internal/logger"
	"github.com/wegman-software/osmflatgo/internal/metrics"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	quiet           bool
	logFile         string
	metricsInterval time.Duration
	configFile      string
)

var rootCmd = &cobra.Command{
	Use:   "osmflatgo <input.osm.pbf> <output_directory>",
	Short: "Compile an OpenStreetMap PBF extract into a flat, memory-mappable archive",
	Long: `osmflatgo reads a .osm.pbf file and writes a directory of fixed-layout
binary vectors (nodes, ways, relations, tags, string table, relation
members) that can be opened by mapping the files directly into memory,
with no parse step at read time.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompile,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().IntVarP(&cfg.Threads, "threads", "j", cfg.Threads, "Number of parallel decode workers")
	rootCmd.Flags().BoolVar(&cfg.KeepIDs, "keep-ids", false, "Also write the ids/ sub-archive of original OSM ids")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g. 10s, 1m)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file overriding any flag default")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg.InputFile = args[0]
	cfg.OutputDir = args[1]
	cfg.Verbose = verbose
	cfg.Quiet = quiet
	cfg.LogFile = logFile
	cfg.MetricsInterval = metricsInterval
	cfg.ConfigFile = configFile

	if cfg.ConfigFile != "" {
		overrides, err := loadFileOverrides(cfg.ConfigFile)
		if err != nil {
			return err
		}
		cfg.Apply(overrides)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.LogFile != "" {
		logger.InitWithFile(cfg.Verbose, cfg.LogFile)
	} else {
		logger.Init(cfg.Verbose)
	}
	log := logger.Get()
	defer logger.Sync()

	ctx := context.Background()
	collector := metrics.NewCollector(cfg.MetricsInterval, log)
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	if !cfg.Quiet && cfg.MetricsInterval > 0 {
		go collector.Start(metricsCtx)
	}

	start := time.Now()
	log.Info("starting compile",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.OutputDir),
		zap.Int("threads", cfg.Threads),
		zap.Bool("keep_ids", cfg.KeepIDs),
	)

	stats, err := compiler.Compile(ctx, compiler.Config{
		InputPath: cfg.InputFile,
		OutputDir: cfg.OutputDir,
		Threads:   cfg.Threads,
		KeepIDs:   cfg.KeepIDs,
	}, log)
	if err != nil {
		log.Error("compile failed", zap.Error(err))
		os.Exit(compiler.ExitCode(err))
	}

	elapsed := time.Since(start)
	log.Info("compile complete",
		zap.Duration("total_time", elapsed.Round(time.Second)),
		zap.Uint64("nodes", stats.NumNodes),
		zap.Uint64("ways", stats.NumWays),
		zap.Uint64("relations", stats.NumRelations),
	)
	if !cfg.Quiet {
		cmd.Println(stats.String())
	}
	return nil
}

func loadFileOverrides(path string) (config.FileOverrides, error) {
	var o config.FileOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		return o, err
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, err
	}
	return o, nil
}
