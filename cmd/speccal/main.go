package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xraylab/speccal/internal/chem"
	"github.com/xraylab/speccal/internal/config"
	"github.com/xraylab/speccal/internal/dataset"
	"github.com/xraylab/speccal/internal/fit"
	"github.com/xraylab/speccal/internal/report"
	"github.com/xraylab/speccal/internal/spectral"
	"github.com/xraylab/speccal/internal/storage"
	"github.com/xraylab/speccal/internal/tui"
)

var (
	dataDir string
	verbose bool
	// Fit overrides
	live       bool
	optimizer  string
	loss       string
	workers    int
	iterations int
	lr         float64
	threshold  float64
	// Demo
	runDemo bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "speccal",
		Short: "x-ray energy response calibration",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".speccal", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	fitCmd := &cobra.Command{
		Use:   "fit [config.yaml]",
		Short: "estimate the energy response from transmission data",
		Args:  cobra.ExactArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	fitCmd.Flags().StringVar(&optimizer, "optimizer", "", "optimizer (adam, lbfgs)")
	fitCmd.Flags().StringVar(&loss, "loss", "", "loss (mse, wmse, attmse)")
	fitCmd.Flags().IntVar(&workers, "workers", 0, "parallel case workers")
	fitCmd.Flags().IntVar(&iterations, "iterations", 0, "iteration budget per case")
	fitCmd.Flags().Float64Var(&lr, "lr", 0, "adam learning rate")
	fitCmd.Flags().Float64Var(&threshold, "threshold", 0, "stop threshold on physical values")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list calibration runs",
		RunE:  listRuns,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "plot the estimated effective spectra of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSpectrum,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	materialsCmd := &cobra.Command{
		Use:   "materials [table.json]",
		Short: "list elements covered by an attenuation table",
		Args:  cobra.ExactArgs(1),
		RunE:  listMaterials,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in run configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	demoCmd := &cobra.Command{
		Use:   "demo [dir]",
		Short: "generate a self-contained synthetic calibration workspace",
		Args:  cobra.ExactArgs(1),
		RunE:  generateDemo,
	}
	demoCmd.Flags().BoolVar(&runDemo, "run", false, "fit the generated workspace immediately")

	rootCmd.AddCommand(fitCmd, listCmd, spectrumCmd, exportCmd, materialsCmd, presetsCmd, demoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if live {
		// The progress view owns the terminal.
		return zap.NewNop(), nil
	}
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(args[0])

	table, err := chem.LoadTable(resolvePath(baseDir, cfg.AttenuationTable))
	if err != nil {
		return err
	}
	st, err := config.LoadSourceTable(resolvePath(baseDir, cfg.SourceTable))
	if err != nil {
		return err
	}
	model, err := config.BuildModel(cfg, table, st)
	if err != nil {
		return err
	}

	datasets := make([]fit.Dataset, len(cfg.Datasets))
	combinations := make([]spectral.Combination, len(cfg.Datasets))
	for i, dc := range cfg.Datasets {
		rec, err := dataset.Load(resolvePath(baseDir, dc.Path))
		if err != nil {
			return err
		}
		combinations[i] = dc.Combination.Combination()
		datasets[i] = fit.Dataset{
			Transmission: rec.Transmission,
			Weights:      rec.Weights,
			Forward:      rec.ForwardMatrix(),
			Combination:  combinations[i],
		}
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts := fit.Options{
		LearningRate:  cfg.Fit.LearningRate,
		MaxIterations: cfg.Fit.MaxIterations,
		StopThreshold: cfg.Fit.StopThreshold,
		Optimizer:     fit.OptimizerType(cfg.Fit.Optimizer),
		Loss:          fit.LossType(cfg.Fit.Loss),
		Workers:       cfg.Fit.Workers,
		Logger:        logger,
	}
	if cmd.Flags().Changed("optimizer") {
		opts.Optimizer = fit.OptimizerType(optimizer)
	}
	if cmd.Flags().Changed("loss") {
		opts.Loss = fit.LossType(loss)
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = workers
	}
	if cmd.Flags().Changed("iterations") {
		opts.MaxIterations = iterations
	}
	if cmd.Flags().Changed("lr") {
		opts.LearningRate = lr
	}
	if cmd.Flags().Changed("threshold") {
		opts.StopThreshold = threshold
	}

	start := time.Now()
	var res *fit.RunResult
	if live {
		labels := caseLabels(model)
		res, err = tui.Run(labels, func(onProgress func(fit.Progress)) (*fit.RunResult, error) {
			o := opts
			o.OnProgress = onProgress
			return fit.Estimate(model, datasets, o)
		})
	} else {
		res, err = fit.Estimate(model, datasets, opts)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(res, combinations, string(opts.Optimizer), string(opts.Loss))
	if err != nil {
		return err
	}

	fmt.Print(report.Summary(res))
	fmt.Printf("\n  completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  run id: %s\n", runID)

	if res.Best.Model != nil && len(combinations) > 0 {
		spec, err := res.Best.Model.EffectiveSpectrum(combinations[0])
		if err == nil {
			fmt.Println()
			fmt.Println(report.Spectrum(model.Energies, spec, "estimated effective spectrum (dataset 0)"))
		}
	}
	return nil
}

// caseLabels names the material choice of every case in enumeration order.
func caseLabels(model *spectral.Composite) []string {
	cases := fit.EnumerateCases(model.Filters, model.Scintillators)
	labels := make([]string, len(cases))
	for i, c := range cases {
		label := ""
		for _, m := range c.FilterMaterials {
			if label != "" {
				label += "+"
			}
			label += m.Formula
		}
		for _, m := range c.ScintillatorMaterials {
			label += "/" + m.Formula
		}
		labels[i] = label
	}
	return labels
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tOPTIMIZER\tLOSS\tDATASETS\tBEST\tSTATUS\tCOST")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%.6g\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Optimizer,
			run.Loss,
			run.Datasets,
			run.Best.Case,
			run.Best.Status,
			run.Best.Cost,
		)
	}

	return w.Flush()
}

func plotSpectrum(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	energies, spectra, err := store.LoadSpectrum(args[0])
	if err != nil {
		return err
	}
	if len(energies) == 0 {
		return fmt.Errorf("no spectrum data for run %s", args[0])
	}

	for i, spec := range spectra {
		fmt.Println(report.Spectrum(energies, spec, fmt.Sprintf("effective spectrum (dataset %d)", i)))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func listMaterials(cmd *cobra.Command, args []string) error {
	table, err := chem.LoadTable(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tZ\tWEIGHT\tDENSITY")
	for _, sym := range table.Elements() {
		z, _ := chem.AtomicNumber(sym)
		weight, _ := chem.AtomicWeight(sym)
		density, _ := chem.ElementDensity(sym)
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\n", sym, z, weight, density)
	}
	return w.Flush()
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
