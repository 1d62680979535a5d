package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/adapter"
	redisadapter "github.com/pithecene-io/chipstream/adapter/redis"
	"github.com/pithecene-io/chipstream/adapter/webhook"
	chipconfig "github.com/pithecene-io/chipstream/cli/config"
	"github.com/pithecene-io/chipstream/lode"
	"github.com/pithecene-io/chipstream/log"
	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/runtime"
	"github.com/pithecene-io/chipstream/source"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
)

// missingInputMessage is printed when run is invoked without an input file.
const missingInputMessage = "you have to specify the name of the input file"

// runArgsUsage is the positional argument synopsis of the run command.
const runArgsUsage = "<input-file> [event-limit]"

// publishTimeout bounds run_completed publishing after the run ends.
const publishTimeout = 30 * time.Second

// RunCommand returns the run command.
// This is the only command that writes output.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Extract per-chip hit streams from a decoded-event file",
		ArgsUsage: runArgsUsage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to chipstream.yaml (default: ./chipstream.yaml when present)",
			},
			&cli.StringFlag{
				Name:  "output-root",
				Usage: "Parent directory of per-input output directories",
				Value: runtime.DefaultOutputRoot,
			},
			&cli.StringFlag{
				Name:  "sink",
				Usage: "Stream sink: strict or buffered",
				Value: string(stream.ModeStrict),
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path (- for stderr)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress summary and result output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging (per-event progress)",
			},
			// Lode mirror flags
			&cli.StringFlag{
				Name:  "lode-dataset",
				Usage: "Lode dataset ID",
				Value: lode.DefaultDataset,
			},
			&cli.StringFlag{
				Name:  "lode-backend",
				Usage: "Lode storage backend: fs or s3",
				Value: "fs",
			},
			&cli.StringFlag{
				Name:  "lode-path",
				Usage: "Mirror records into Lode at this path (fs: directory, s3: bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "lode-s3-region",
				Usage: "AWS region for S3 backend (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "lode-s3-endpoint",
				Usage: "Custom S3 endpoint URL (MinIO, R2)",
			},
			&cli.BoolFlag{
				Name:  "lode-s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			// Adapter flags
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Publish run_completed via: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Webhook endpoint or redis:// URL",
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Redis pub/sub channel",
			},
			&cli.StringSliceFlag{
				Name:  "adapter-header",
				Usage: "Extra webhook header as key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Per-attempt publish timeout (0 = adapter default)",
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Publish retry attempts",
				Value: webhook.DefaultRetries,
			},
		},
		Action: runAction,
	}
}

// lodeChoice holds resolved Lode mirror configuration.
type lodeChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// adapterChoice holds resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

func runAction(c *cli.Context) error {
	if c.NArg() < 1 {
		printMissingInput(c)
		return nil
	}
	input := c.Args().Get(0)

	cfg, err := chipconfig.LoadOptional(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	eventLimit, err := resolveEventLimit(c, cfg)
	if err != nil {
		return err
	}

	mode, err := stream.ParseMode(resolveString(c, "sink", configVal(cfg, func(cfg *chipconfig.Config) string { return cfg.Sink })))
	if err != nil {
		return err
	}

	lc := resolveLodeChoice(c, cfg)
	if err := validateLodeChoice(lc); err != nil {
		return err
	}

	var ac *adapterChoice
	if adapterType := resolveString(c, "adapter", configVal(cfg, func(cfg *chipconfig.Config) string { return cfg.Adapter.Type })); adapterType != "" {
		parsed, err := parseAdapterConfig(c, cfg, adapterType)
		if err != nil {
			return err
		}
		ac = parsed
	}

	outputDir, err := runtime.OutputDir(
		resolveString(c, "output-root", configVal(cfg, func(cfg *chipconfig.Config) string { return cfg.OutputRoot })),
		input,
	)
	if err != nil {
		return err
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	runMeta := &types.RunMeta{RunID: runID, Input: input}

	logger := log.NewLogger(runMeta, log.WithWriter(c.App.ErrWriter), log.WithVerbose(c.Bool("verbose")))
	defer func() { _ = logger.Sync() }()
	cliLog := logger.Sugar().With("component", "cli")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			cliLog.Infof("received %s, stopping after the current event", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// The input is opened before the output directory is cleared so an
	// unreadable input leaves previous output untouched.
	src, err := source.Open(input)
	if err != nil {
		return cli.Exit(fmt.Sprintf("source failure: %v", err), runtime.ExitCodeSourceFailure)
	}

	if err := runtime.PrepareOutputDir(outputDir); err != nil {
		_ = src.Close()
		return cli.Exit(fmt.Sprintf("sink failure: %v", err), runtime.ExitCodeSinkFailure)
	}

	acc := metrics.NewAccumulator(string(mode), storageBackend(lc), runID)

	fileSink, err := stream.NewFileSink(mode, outputDir)
	if err != nil {
		_ = src.Close()
		return cli.Exit(fmt.Sprintf("sink failure: %v", err), runtime.ExitCodeSinkFailure)
	}

	sink := fileSink
	var mirror runtime.SummaryMirror
	if lc.path != "" {
		name, _ := runtime.OutputName(input)
		client, err := buildLodeClient(ctx, lc, lode.Config{
			Dataset: lc.dataset,
			Input:   name,
			Day:     lode.DeriveDay(time.Now()),
			RunID:   runID,
		})
		if err != nil {
			_ = src.Close()
			_ = fileSink.Close()
			return cli.Exit(fmt.Sprintf("sink failure: failed to create Lode client: %v", err), runtime.ExitCodeSinkFailure)
		}
		defer func() { _ = client.Close() }()

		lodeSink := lode.NewSink(lode.NewInstrumentedClient(client, acc), lode.DefaultBatchSize)
		sink = stream.NewTeeSink(fileSink, lodeSink)
		mirror = lodeSink
	}

	var pub adapter.Adapter
	if ac != nil {
		pub, err = buildAdapter(*ac)
		if err != nil {
			_ = src.Close()
			_ = sink.Close()
			return fmt.Errorf("failed to create %s adapter: %w", ac.adapterType, err)
		}
		defer func() { _ = pub.Close() }()
	}

	orchestrator, err := runtime.NewOrchestrator(&runtime.RunConfig{
		RunMeta:       runMeta,
		Source:        src,
		Sink:          sink,
		OutputDir:     outputDir,
		EventLimit:    eventLimit,
		Accumulator:   acc,
		SummaryMirror: mirror,
		Logger:        logger,
	})
	if err != nil {
		_ = src.Close()
		_ = sink.Close()
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// The run error is already reflected in the outcome and logged.
	result, _ := orchestrator.Run(ctx)
	exitCode := runtime.ExitCodeForOutcome(result.Outcome.Status)

	if !c.Bool("quiet") {
		printRunResult(c.App.Writer, result, mode, lc)
	}

	if reportPath := resolveString(c, "report", configVal(cfg, func(cfg *chipconfig.Config) string { return cfg.Report })); reportPath != "" {
		report := runtime.BuildRunReport(result, string(mode), exitCode)
		if err := runtime.WriteRunReport(report, reportPath); err != nil {
			cliLog.Warnf("failed to write run report: %v", err)
		}
	}

	if pub != nil {
		publishRunCompleted(ctx, pub, result, exitCode, cliLog)
	}

	return cli.Exit("", exitCode)
}

// printMissingInput reports the usage error for a missing input file.
func printMissingInput(c *cli.Context) {
	w := c.App.Writer
	fmt.Fprintln(w, missingInputMessage)
	fmt.Fprintf(w, "usage: %s run [options] %s\n", c.App.Name, runArgsUsage)
}

// resolveEventLimit reads the optional event-limit argument, falling back
// to the config file. 0 means unbounded.
func resolveEventLimit(c *cli.Context, cfg *chipconfig.Config) (int, error) {
	if c.NArg() < 2 {
		if cfg != nil && cfg.EventLimit != nil {
			return *cfg.EventLimit, nil
		}
		return 0, nil
	}
	raw := c.Args().Get(1)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("event-limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

// resolveString returns the CLI value when explicitly set, otherwise the
// config value when non-empty, otherwise the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

// resolveInt is resolveString for int flags. A nil cfgVal means unset.
func resolveInt(c *cli.Context, name string, cfgVal *int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != nil {
		return *cfgVal
	}
	return c.Int(name)
}

// resolveBool is resolveString for bool flags.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

// resolveDuration is resolveString for duration flags.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// configVal reads a field from a config that may be nil.
func configVal(cfg *chipconfig.Config, get func(*chipconfig.Config) string) string {
	if cfg == nil {
		return ""
	}
	return get(cfg)
}

func resolveLodeChoice(c *cli.Context, cfg *chipconfig.Config) lodeChoice {
	var sc chipconfig.StorageConfig
	if cfg != nil {
		sc = cfg.Storage
	}
	return lodeChoice{
		dataset:   resolveString(c, "lode-dataset", sc.Dataset),
		backend:   resolveString(c, "lode-backend", sc.Backend),
		path:      resolveString(c, "lode-path", sc.Path),
		region:    resolveString(c, "lode-s3-region", sc.Region),
		endpoint:  resolveString(c, "lode-s3-endpoint", sc.Endpoint),
		pathStyle: resolveBool(c, "lode-s3-path-style", sc.S3PathStyle),
	}
}

func validateLodeChoice(lc lodeChoice) error {
	switch lc.backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unknown lode-backend: %s (must be fs or s3)", lc.backend)
	}
	if lc.path == "" {
		return nil
	}
	if lc.dataset == "" {
		return errors.New("--lode-dataset must not be empty when --lode-path is set")
	}
	if lc.backend == "s3" {
		if bucket, _ := lode.ParseS3Path(lc.path); bucket == "" {
			return fmt.Errorf("--lode-path %q has no S3 bucket", lc.path)
		}
	}
	return nil
}

// storageBackend is the backend label recorded in the run counters.
func storageBackend(lc lodeChoice) string {
	if lc.path == "" {
		return ""
	}
	return lc.backend
}

// buildLodeClient creates the Lode client for the selected backend.
func buildLodeClient(ctx context.Context, lc lodeChoice, cfg lode.Config) (lode.Client, error) {
	switch lc.backend {
	case "fs":
		return lode.NewLodeClient(cfg, lc.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(lc.path)
		return lode.NewLodeS3Client(ctx, cfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       lc.region,
			Endpoint:     lc.endpoint,
			UsePathStyle: lc.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown lode-backend: %s (must be fs or s3)", lc.backend)
	}
}

// parseAdapterConfig resolves adapter settings with CLI over config precedence.
func parseAdapterConfig(c *cli.Context, cfg *chipconfig.Config, adapterType string) (*adapterChoice, error) {
	var fileCfg chipconfig.AdapterConfig
	if cfg != nil {
		fileCfg = cfg.Adapter
	}

	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("unknown adapter: %s (must be webhook or redis)", adapterType)
	}

	ac := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", fileCfg.URL),
		timeout:     resolveDuration(c, "adapter-timeout", fileCfg.Timeout.Duration),
		retries:     resolveInt(c, "adapter-retries", fileCfg.Retries),
		headers:     make(map[string]string, len(fileCfg.Headers)),
	}
	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}

	if adapterType == "redis" {
		ac.channel = resolveString(c, "adapter-channel", fileCfg.Channel)
	}

	for k, v := range fileCfg.Headers {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("malformed --adapter-header %q (want key=value)", h)
		}
		ac.headers[strings.TrimSpace(k)] = v
	}

	return ac, nil
}

// buildAdapter constructs the adapter for a resolved choice.
func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter: %s", ac.adapterType)
	}
}

// buildRunCompletedEvent builds the notification payload for a finished run.
func buildRunCompletedEvent(result *runtime.RunResult, exitCode int) *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		EventType:     adapter.EventTypeRunCompleted,
		FormatVersion: types.FormatVersion,
		RunID:         result.RunMeta.RunID,
		Input:         result.RunMeta.Input,
		OutputDir:     result.OutputDir,
		Outcome:       string(result.Outcome.Status),
		Message:       result.Outcome.Message,
		ExitCode:      exitCode,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Events:        result.Metrics.Events,
		ChipsAccepted: result.Metrics.ChipsAccepted,
		ChipsSplit:    result.Metrics.ChipsSplit,
		ChipsSkipped:  result.Metrics.ChipsSkipped,
		DurationMs:    result.Duration.Milliseconds(),
	}
}

// publishRunCompleted publishes the run_completed event. Failures are
// logged and never change the exit code.
func publishRunCompleted(ctx context.Context, pub adapter.Adapter, result *runtime.RunResult, exitCode int, logger *log.SugaredLogger) {
	// A canceled run still announces its outcome.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := pub.Publish(pubCtx, buildRunCompletedEvent(result, exitCode)); err != nil {
		logger.Warnf("failed to publish run_completed event: %v", err)
		return
	}
	logger.Debugf("published run_completed event for run %s", result.RunMeta.RunID)
}

func printRunResult(w io.Writer, result *runtime.RunResult, mode stream.Mode, lc lodeChoice) {
	fmt.Fprint(w, result.Summary)

	fmt.Fprintf(w, "\nrun_id=%s, outcome=%s, duration=%s\n",
		result.RunMeta.RunID,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)

	fmt.Fprintf(w, "\n=== Run Result ===\n")
	fmt.Fprintf(w, "Input:        %s\n", result.RunMeta.Input)
	fmt.Fprintf(w, "Output Dir:   %s\n", result.OutputDir)
	fmt.Fprintf(w, "Outcome:      %s\n", result.Outcome.Status)
	fmt.Fprintf(w, "Message:      %s\n", result.Outcome.Message)
	fmt.Fprintf(w, "Events:       %d\n", result.Metrics.Events)
	fmt.Fprintf(w, "Chips Seen:   %d\n", result.Metrics.ChipsVisited())

	fmt.Fprintf(w, "\n=== Sink Stats ===\n")
	fmt.Fprintf(w, "Sink:         %s\n", mode)
	fmt.Fprintf(w, "Records:      %d\n", result.SinkStats.Records)
	fmt.Fprintf(w, "Bytes:        %d\n", result.SinkStats.Bytes)
	fmt.Fprintf(w, "Streams:      %d\n", result.SinkStats.Streams)
	fmt.Fprintf(w, "Flushes:      %d\n", result.SinkStats.Flushes)

	if lc.path != "" {
		fmt.Fprintf(w, "\n=== Lode Mirror ===\n")
		fmt.Fprintf(w, "Backend:      %s\n", lc.backend)
		fmt.Fprintf(w, "Path:         %s\n", lc.path)
		fmt.Fprintf(w, "Writes:       %d ok, %d failed\n", result.Metrics.LodeWriteSuccess, result.Metrics.LodeWriteFailure)
	}
}
