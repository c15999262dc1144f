package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/proscan/pkg/config"
	"github.com/Sumatoshi-tech/proscan/pkg/decoder"
	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/observability"
	"github.com/Sumatoshi-tech/proscan/pkg/pipeline"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/report"
	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
	"github.com/Sumatoshi-tech/proscan/pkg/version"
)

const outputFilePerm = 0o644

// flagBindings maps command-line flags onto config keys, so that flags win
// over the config file and the environment.
var flagBindings = map[string]string{
	"window":        "dedup.window",
	"pass-grade":    "grading.pass_grade",
	"fps":           "pipeline.fps",
	"workers":       "pipeline.workers",
	"log-level":     "logging.level",
	"log-json":      "logging.json",
	"metrics-addr":  "observability.metrics_addr",
	"otlp-endpoint": "observability.otlp_endpoint",
	"environment":   "observability.environment",
}

// ScanCommand holds flags and dependencies of the scan subcommand.
type ScanCommand struct {
	global *globalFlags
	viper  *viper.Viper

	output      string
	format      string
	title       string
	realtime    bool
	tryHarder   bool
	symbologies []string
}

func newScanCommand(gf *globalFlags) *cobra.Command {
	sc := &ScanCommand{global: gf, viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "scan <image|dir>...",
		Short: "Inspect frames from image files or directories",
		Long: `Decode and grade every barcode in the given frames.

Frames are read in argument order; directories contribute their PNG, JPEG and
GIF files in name order. One JSON record per detection is written to --output,
and statistics are printed when the stream ends.

Examples:
  proscan scan captures/
  proscan scan --fps 30 --window 2s -o records.jsonl captures/
  proscan scan --format plot captures/ > report.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: sc.run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&sc.output, "output", "o", "", "write scan records as JSON lines to this file (- for stdout)")
	flags.StringVar(&sc.format, "format", report.FormatTable, "statistics format: table, json, yaml, plot")
	flags.StringVar(&sc.title, "title", "", "title of the statistics report")
	flags.BoolVar(&sc.realtime, "realtime", false, "pace frames at --fps and stamp them with wall-clock time")
	flags.BoolVar(&sc.tryHarder, "try-harder", false, "spend more time looking for symbols in each frame")
	flags.StringSliceVar(&sc.symbologies, "symbology", nil, "only report these symbologies (e.g. qr,code-128)")

	flags.Duration("window", config.DefaultWindow, "duplicate suppression window (0 disables)")
	flags.String("pass-grade", config.DefaultPassGrade, "lowest grade that counts as a pass")
	flags.Int("fps", config.DefaultFPS, "frame rate of the source, 5 to 60")
	flags.Int("workers", 0, "analysis workers (0 = CPU count)")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "log as JSON")
	flags.String("metrics-addr", "", "serve /metrics, /healthz and /readyz on this address")
	flags.String("otlp-endpoint", "", "OTLP gRPC collector address for traces and metrics")
	flags.String("environment", "", "deployment environment, e.g. the line name")

	for flag, key := range flagBindings {
		err := sc.viper.BindPFlag(key, flags.Lookup(flag))
		if err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	return cmd
}

func (sc *ScanCommand) run(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(sc.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigWith(sc.viper, sc.global.configPath)
	if err != nil {
		return err
	}

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	providers, err := observability.Init(sc.observabilityConfig(cfg))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(cmd.Context()))
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown", "error", shutdownErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := scanstats.New(cfg.PassGrade())

	p, err := sc.buildPipeline(cfg, providers, stats)
	if err != nil {
		return err
	}

	source := newFileSource(paths, cfg.Pipeline.FPS, sc.realtime, providers.Logger)

	adminErr := sc.startAdmin(ctx, cfg, providers, source)

	sink, closeSink, err := openSink(sc.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	streamErr := sc.stream(ctx, p, source, sink, providers.Logger)

	err = errors.Join(streamErr, closeSink())
	if err != nil {
		return err
	}

	stop()

	if adminErr != nil {
		err = <-adminErr
		if err != nil {
			return err
		}
	}

	// Records own stdout when streamed there; the report moves to stderr.
	out := cmd.OutOrStdout()
	if sc.output == "-" {
		out = cmd.ErrOrStderr()
	}

	return report.Write(out, format, stats.Snapshot(), report.Options{
		Title: sc.title,
		Color: format == report.FormatTable && shouldColorize(out, sc.global.noColor),
	})
}

func (sc *ScanCommand) observabilityConfig(cfg *config.Config) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Mode = observability.ModeScan
	obs.Environment = cfg.Observability.Environment
	obs.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obs.OTLPInsecure = cfg.Observability.OTLPInsecure
	obs.Prometheus = cfg.Observability.MetricsAddr != ""
	obs.SampleRatio = cfg.Observability.SampleRatio
	obs.TraceVerbose = cfg.Observability.TraceVerbose
	obs.LogLevel = cfg.LogLevel()
	obs.LogJSON = cfg.Logging.JSON

	if sc.global.verbose {
		obs.LogLevel = slog.LevelDebug
	}

	return obs
}

func (sc *ScanCommand) buildPipeline(
	cfg *config.Config, providers observability.Providers, stats *scanstats.Aggregator,
) (*pipeline.Pipeline, error) {
	analyzer, err := quality.NewAnalyzer(cfg.Quality)
	if err != nil {
		return nil, err
	}

	grader, err := grading.NewEngine(cfg.Grading.Bands)
	if err != nil {
		return nil, err
	}

	zxOpts := []decoder.ZXingOption{decoder.WithTryHarder(sc.tryHarder)}

	if len(sc.symbologies) > 0 {
		syms := make([]symbology.Symbology, 0, len(sc.symbologies))

		for _, name := range sc.symbologies {
			sym, parseErr := symbology.Parse(name)
			if parseErr != nil {
				return nil, parseErr
			}

			if !decoder.Supported(sym) {
				return nil, fmt.Errorf("%w: %s", decoder.ErrUnsupportedSymbology, sym)
			}

			syms = append(syms, sym)
		}

		zxOpts = append(zxOpts, decoder.WithSymbologies(syms...))
	}

	metrics, err := observability.NewScanMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("scan metrics: %w", err)
	}

	logger := providers.Logger

	opts := []pipeline.Option{
		pipeline.WithAnalyzer(analyzer),
		pipeline.WithGrader(grader),
		pipeline.WithAggregator(stats),
		pipeline.WithWindow(cfg.Dedup.Window),
		pipeline.WithBuffer(cfg.Pipeline.Buffer),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
		pipeline.WithOnAdmitted(func(r scan.Record) {
			logger.Debug("scan admitted",
				"frame", r.Frame, "symbology", r.Symbology.String(), "grade", r.Grade.String(), "defect", r.Defect.String())
		}),
	}

	// Zero keeps the pipeline's CPU-count default.
	if cfg.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithWorkers(cfg.Pipeline.Workers))
	}

	return pipeline.New(decoder.NewZXing(zxOpts...), opts...)
}

// startAdmin serves the admin endpoints in the background when configured.
// The returned channel yields the server's exit error once ctx ends.
func (sc *ScanCommand) startAdmin(
	ctx context.Context, cfg *config.Config, providers observability.Providers, source *fileSource,
) <-chan error {
	addr := cfg.Observability.MetricsAddr
	if addr == "" {
		return nil
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		providers.Logger.Warn("admin request metrics disabled", "error", err)
	}

	handler := observability.AdminHandler(providers, observability.AdminOptions{
		Metrics: providers.MetricsHandler,
		Checks:  []observability.NamedCheck{{Name: "source", Check: source.Ready}},
		RED:     red,
	})

	errCh := make(chan error, 1)

	go func() {
		errCh <- observability.ServeAdmin(ctx, addr, handler, providers.Logger)
	}()

	return errCh
}

// stream feeds the source through the pipeline and writes every record to sink.
// Frames the decoder could not process are logged and skipped.
func (sc *ScanCommand) stream(
	ctx context.Context, p *pipeline.Pipeline, source *fileSource, sink *json.Encoder, logger *slog.Logger,
) error {
	frames := make(chan *frame.Frame)
	sourceErr := make(chan error, 1)

	go func() {
		sourceErr <- source.Stream(ctx, frames)
	}()

	var writeErr error

	for res := range p.Run(ctx, frames) {
		if res.Err != nil && !errors.Is(res.Err, decoder.ErrDecoderUnavailable) {
			writeErr = errors.Join(writeErr, res.Err)
		}

		if sink == nil || writeErr != nil {
			continue
		}

		for _, rec := range res.Records {
			err := sink.Encode(rec)
			if err != nil {
				writeErr = fmt.Errorf("write record: %w", err)

				break
			}
		}
	}

	err := <-sourceErr
	if errors.Is(err, context.Canceled) || errors.Is(writeErr, context.Canceled) {
		logger.Info("scan interrupted")

		return nil
	}

	if skipped := source.skipped.Load(); skipped > 0 {
		logger.Warn("some frames could not be read", "skipped", skipped)
	}

	return errors.Join(err, writeErr)
}

// openSink opens the JSON lines destination. An empty path disables records.
func openSink(path string, stdout io.Writer) (*json.Encoder, func() error, error) {
	switch path {
	case "":
		return nil, func() error { return nil }, nil
	case "-":
		return json.NewEncoder(stdout), func() error { return nil }, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}

	buf := bufio.NewWriter(file)

	closeFn := func() error {
		return errors.Join(buf.Flush(), file.Close())
	}

	return json.NewEncoder(buf), closeFn, nil
}
