package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/flaneur2020/region-optimizer/regionopt"
	"github.com/flaneur2020/region-optimizer/regionopt/logger"
	"github.com/flaneur2020/region-optimizer/regionopt/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "regionopt",
		Short:   "Optimize Minecraft worlds by deleting unused region files and chunks",
		Version: "1.0",
	}
	addGlobalFlags(rootCmd.PersistentFlags())

	// check command
	checkCmd := &cobra.Command{
		Use:   "check <WORLD>...",
		Short: "Count the chunks and region files that can be deleted, without changing the world",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCheck,
	}

	// write command
	writeCmd := &cobra.Command{
		Use:   "write <WORLD>...",
		Short: "Delete unused chunks and region files. Back up the world and close the game first",
		Args:  cobra.MinimumNArgs(1),
		Run:   runWrite,
	}

	// palette command
	paletteCmd := &cobra.Command{
		Use:   "palette [WORLD]...",
		Short: "Export chunks containing a block id to a CSV file, or delete the chunks listed in one",
		Run:   runPalette,
	}
	addPaletteFlags(paletteCmd.Flags())

	rootCmd.AddCommand(checkCmd, writeCmd, paletteCmd)
	return rootCmd
}

// setup loads the configuration and builds the optimizer; it exits on
// invalid settings.
func setup(cmd *cobra.Command, dryRun bool) (*config, *regionopt.Optimizer, storage.Storage) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fatal(err)
	}
	logger.SetLogLevel(cfg.LogLevel)

	s := storage.NewFileStorage()
	o := regionopt.NewOptimizer(s, regionopt.Options{
		CompressionLevel: cfg.CompressionLevel,
		Workers:          cfg.Workers,
		DryRun:           dryRun,
	})
	return cfg, o, s
}

func runCheck(cmd *cobra.Command, args []string) {
	sweep(cmd, args, true)
}

func runWrite(cmd *cobra.Command, args []string) {
	sweep(cmd, args, false)
}

func sweep(cmd *cobra.Command, worlds []string, dryRun bool) {
	cfg, o, s := setup(cmd, dryRun)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths, err := s.ListRegions(ctx, worlds)
	if err != nil {
		fatal(err)
	}

	bar := newProgressBar(cfg, len(paths), "Optimizing")
	result, err := o.Sweep(ctx, paths, bar.callback())
	bar.finish()
	if err != nil {
		fatal(err)
	}

	fmt.Println(result)
}

func runPalette(cmd *cobra.Command, args []string) {
	cfg, o, s := setup(cmd, false)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.CSVIn != "" {
		paletteImport(ctx, cfg, o)
		return
	}

	if len(args) == 0 {
		fatal(fmt.Errorf("palette export requires at least one world"))
	}
	paths, err := s.ListRegions(ctx, args)
	if err != nil {
		fatal(err)
	}
	paletteExport(ctx, cfg, o, paths)
}

func paletteExport(ctx context.Context, cfg *config, o *regionopt.Optimizer, paths []string) {
	bar := newProgressBar(cfg, len(paths), "Scanning")
	matches, result, err := o.PaletteExport(ctx, paths, cfg.Filter, bar.callback())
	bar.finish()
	if err != nil {
		fatal(err)
	}

	f, err := os.Create(cfg.CSVOut)
	if err != nil {
		fatal(err)
	}
	if err := regionopt.WriteMatchesCSV(f, matches); err != nil {
		f.Close()
		fatal(err)
	}
	if err := f.Close(); err != nil {
		fatal(err)
	}

	fmt.Printf("Exported %d chunks from %d region files to %s\n", len(matches), regionopt.CountRegions(matches), cfg.CSVOut)
	fmt.Println(result)
}

func paletteImport(ctx context.Context, cfg *config, o *regionopt.Optimizer) {
	f, err := os.Open(cfg.CSVIn)
	if err != nil {
		fatal(err)
	}
	matches, err := regionopt.ReadMatchesCSV(f)
	f.Close()
	if err != nil {
		fatal(err)
	}

	bar := newProgressBar(cfg, regionopt.CountRegions(matches), "Deleting")
	result, err := o.PaletteImport(ctx, matches, cfg.Filter, bar.callback())
	bar.finish()
	if err != nil {
		fatal(err)
	}

	fmt.Println(result)
}

// progress wraps an optional progress bar counting region files.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(cfg *config, total int, description string) *progress {
	if cfg.NoProgress || total == 0 {
		return &progress{}
	}
	return &progress{
		bar: progressbar.NewOptions64(int64(total),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("regions"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetPredictTime(true),
		),
	}
}

func (p *progress) callback() regionopt.ProgressCallback {
	if p.bar == nil {
		return nil
	}
	return func() {
		p.bar.Add(1)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
