package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/notelink/internal/app"
	"github.com/hyperifyio/notelink/internal/cache"
	"github.com/hyperifyio/notelink/internal/metrics"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 2
	exitUsage   = 64
)

type options struct {
	cfg         app.Config
	req         app.LinkRequest
	configPath  string
	envFiles    string
	outputPath  string
	metricsFile string
	timeout     time.Duration
	version     bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(exitUsage)
	}
	if opts.version {
		fmt.Println(app.Version())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := exitCode(run(ctx, opts, os.Stdout))
	stop()
	os.Exit(code)
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var (
		o     options
		mode  string
		debug bool
	)
	fs.StringVar(&o.req.URL, "url", "", "Page URL to turn into a note")
	fs.StringVar(&mode, "mode", string(app.ModeFormatted), "Output mode: formatted, summary or plain")
	fs.BoolVar(&o.req.IncludeImages, "images", false, "Keep images and inline them as data URIs (formatted mode)")
	fs.StringVar(&o.configPath, "config", "", "Config file (YAML or JSON); default reads config.yaml then config.local.yaml when present")
	fs.StringVar(&o.envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	fs.StringVar(&o.outputPath, "output", "", "Write the JSON result here instead of stdout")
	fs.StringVar(&o.metricsFile, "metrics.file", "", "Write Prometheus metrics in text format to this file after the run")
	fs.DurationVar(&o.timeout, "timeout", 0, "Overall deadline for the request; 0 disables")
	fs.StringVar(&o.cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&o.cfg.LLMModel, "llm.model", "", "Summary model name")
	fs.StringVar(&o.cfg.LLMAPIKey, "llm.key", "", "API key for the completion endpoint")
	fs.StringVar(&o.cfg.SummaryPrompt, "summary.prompt", "", "Prompt placed before the article text")
	fs.IntVar(&o.cfg.SummaryMaxTokens, "summary.maxTokens", 0, "Maximum summary tokens")
	fs.StringVar(&o.cfg.UserAgent, "fetch.ua", "", "User-Agent for page and image requests")
	fs.DurationVar(&o.cfg.FetchTimeout, "fetch.timeout", 0, "Per-request page fetch timeout (default 30s)")
	fs.Int64Var(&o.cfg.MaxPageBytes, "fetch.maxBytes", 0, "Truncate pages past this size; 0 disables")
	fs.IntVar(&o.cfg.ImageConcurrency, "images.concurrency", 0, "Concurrent image fetches (default 4)")
	fs.Int64Var(&o.cfg.ImageMaxBytes, "images.maxBytes", 0, "Drop images larger than this; 0 disables")
	fs.DurationVar(&o.cfg.ImageTimeout, "images.timeout", 0, "Per-image fetch timeout; 0 uses the page timeout")
	fs.StringVar(&o.cfg.CacheDir, "cache.dir", "", "Directory for cached summaries; empty disables caching")
	fs.DurationVar(&o.cfg.CacheMaxAge, "cache.maxAge", 0, "Expire cached summaries older than this; 0 keeps them")
	fs.DurationVar(&o.cfg.MinLatency, "min-latency", 0, "Minimum duration of a call, e.g. 1.5s")
	fs.BoolVar(&debug, "v", false, "Verbose logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.req.Mode = app.Mode(strings.ToLower(strings.TrimSpace(mode)))
	o.cfg.Verbose = debug
	return o, nil
}

// loadConfig layers flags over config files over the environment.
func loadConfig(o options) (app.Config, error) {
	cfg := o.cfg
	if err := app.LoadEnvFiles(strings.Split(o.envFiles, ",")...); err != nil {
		return cfg, fmt.Errorf("load env files: %w", err)
	}
	var (
		fc     app.FileConfig
		loaded []string
		err    error
	)
	if strings.TrimSpace(o.configPath) != "" {
		fc, err = app.LoadConfigFile(o.configPath)
		loaded = []string{o.configPath}
	} else {
		fc, loaded, err = app.LoadConfigFiles(app.DefaultConfigFiles...)
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	for _, p := range loaded {
		log.Debug().Str("path", p).Msg("config file loaded")
	}
	app.ApplyFileConfig(&cfg, fc)
	app.ApplyEnvToConfig(&cfg)
	return cfg, nil
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var reg *prometheus.Registry
	if o.metricsFile != "" {
		reg = prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		defer func() {
			if err := prometheus.WriteToTextfile(o.metricsFile, reg); err != nil {
				log.Warn().Err(err).Str("path", o.metricsFile).Msg("write metrics failed")
			}
		}()
	}

	if cfg.CacheDir != "" && cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("expired summaries purged")
		}
	}

	log.Debug().Str("version", app.Version()).Msg("starting")
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if o.req.Mode == app.ModeSummary && !a.SummariesEnabled() {
		log.Warn().Msg("no LLM API key configured; summary mode will return plain text")
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := a.ProcessLink(ctx, o.req)
	if err != nil {
		return err
	}

	out := stdout
	if o.outputPath != "" {
		f, err := os.Create(o.outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	log.Error().Err(err).Msg("run failed")
	if errors.Is(err, app.ErrInvalidRequest) {
		return exitUsage
	}
	return exitFailure
}
