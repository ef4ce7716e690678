package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/flaneur2020/region-optimizer/regionopt"
	"github.com/flaneur2020/region-optimizer/regionopt/compression"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "REGIONOPT"

const (
	flagCompressionLevel = "compression-level"
	flagWorkers          = "workers"
	flagNoProgress       = "no-progress"
	flagVerbose          = "verbose"
	flagDebug            = "debug"
	flagLogLevel         = "log-level"
	flagCSVOut           = "csv-out"
	flagCSVIn            = "csv-in"
	flagID               = "id"
	flagCount            = "count"
)

var errCompressionLevel = fmt.Errorf("compression level must be an integer between %d and %d",
	compression.MinLevel, compression.MaxLevel)

// config holds the validated settings of one command run.
type config struct {
	CompressionLevel int
	Workers          int
	NoProgress       bool
	LogLevel         logger.LogLevel

	CSVOut string
	CSVIn  string
	Filter *regionopt.Filter
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.IntP(flagCompressionLevel, "c", compression.DefaultLevel, "Compression level when writing region files (0-9)")
	flags.Int(flagWorkers, 0, "Number of region files processed in parallel (default: number of CPUs)")
	flags.Bool(flagNoProgress, false, "Disable progress bar (progress is enabled by default)")
	flags.BoolP(flagVerbose, "v", false, "Log every skipped or rewritten region")
	flags.Bool(flagDebug, false, "Log per chunk decisions")
	flags.String(flagLogLevel, "", "Log level: silent, error, warn, info or debug")
}

func addPaletteFlags(flags *pflag.FlagSet) {
	flags.String(flagCSVOut, "", "Write the selected chunks to this CSV file")
	flags.String(flagCSVIn, "", "Delete the chunks listed in this CSV file")
	flags.String(flagID, "", "Block id to filter by, for example minecraft:diamond_ore")
	flags.String(flagCount, "", "Minimum number of sections containing --id")
}

// newViper binds the command flags so each one can also be set through a
// REGIONOPT_* environment variable, e.g. REGIONOPT_COMPRESSION_LEVEL=9.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

func loadConfig(cmd *cobra.Command) (*config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	level, err := parseCompressionLevel(v.GetString(flagCompressionLevel))
	if err != nil {
		return nil, err
	}

	workers, err := strconv.Atoi(v.GetString(flagWorkers))
	if err != nil || workers < 0 {
		return nil, fmt.Errorf("workers must be a non-negative integer, got %q", v.GetString(flagWorkers))
	}

	cfg := &config{
		CompressionLevel: level,
		Workers:          workers,
		NoProgress:       v.GetBool(flagNoProgress),
		LogLevel:         logger.LogLevelWarn,
	}

	switch {
	case v.GetString(flagLogLevel) != "":
		if cfg.LogLevel, err = logger.ParseLevel(v.GetString(flagLogLevel)); err != nil {
			return nil, err
		}
	case v.GetBool(flagDebug):
		cfg.LogLevel = logger.LogLevelDebug
	case v.GetBool(flagVerbose):
		cfg.LogLevel = logger.LogLevelInfo
	}

	if cmd.Flags().Lookup(flagCSVOut) != nil {
		if err := cfg.loadPalette(v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *config) loadPalette(v *viper.Viper) error {
	c.CSVOut = v.GetString(flagCSVOut)
	c.CSVIn = v.GetString(flagCSVIn)
	switch {
	case c.CSVOut == "" && c.CSVIn == "":
		return errors.New("you must provide either --csv-out or --csv-in")
	case c.CSVOut != "" && c.CSVIn != "":
		return errors.New("--csv-out and --csv-in cannot be used together")
	}

	id := v.GetString(flagID)
	count := v.GetString(flagCount)
	if id == "" {
		if count != "" {
			return errors.New("--count requires --id")
		}
		return nil
	}

	c.Filter = &regionopt.Filter{Name: id}
	if count != "" {
		n, err := strconv.ParseUint(count, 10, 32)
		if err != nil {
			return fmt.Errorf("count must be a non-negative integer, got %q", count)
		}
		threshold := uint32(n)
		c.Filter.Threshold = &threshold
	}
	return nil
}

func parseCompressionLevel(s string) (int, error) {
	level, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !compression.ValidLevel(level) {
		return 0, errCompressionLevel
	}
	return level, nil
}
