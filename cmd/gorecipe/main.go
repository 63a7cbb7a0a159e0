package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/gorecipe/internal/app"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1
	exitUnsupported = 2
	exitFetch       = 3
	exitParse       = 4
)

func init() {
	// -v is --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return execute(&state{stdin: stdin, stdout: stdout, stderr: stderr, newApp: app.New}, args)
}

func execute(st *state, args []string) int {
	setupLogging(st.stderr, "console", zerolog.InfoLevel)
	if err := newCLI(st).Run(args); err != nil {
		code := exitCode(err)
		log.Error().Err(err).Str("kind", recipe.Kind(err)).Int("exit_code", code).Msg("gorecipe failed")
		return code
	}
	return exitOK
}

func exitCode(err error) int {
	switch recipe.Kind(err) {
	case "":
		return exitOK
	case recipe.KindInvalidURL, recipe.KindURLNotSupported:
		return exitUnsupported
	case recipe.KindFetch:
		return exitFetch
	case recipe.KindParse:
		return exitParse
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return exitUsage
}

func setupLogging(w io.Writer, format string, level zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)
	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
}

// state is shared between the Before hook and the command actions.
type state struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	newApp func(ctx context.Context, cfg app.Config) (*app.App, error)
	cfg    app.Config
}

func newCLI(st *state) *cli.App {
	return &cli.App{
		Name:           "gorecipe",
		Usage:          "extract recipes from supported recipe sites",
		Version:        fmt.Sprintf("%s (%s, %s)", app.BuildVersion, app.BuildCommit, app.BuildDate),
		Writer:         st.stdout,
		ErrWriter:      st.stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML or JSON config file"},
			&cli.StringSliceFlag{Name: "env-file", Value: cli.NewStringSlice(".env"), Usage: "dotenv files to load (missing files are skipped)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: "console", Usage: "console or json"},
			&cli.StringFlag{Name: "cache-dir", Usage: "HTTP cache directory (empty disables the cache)"},
			&cli.BoolFlag{Name: "no-cache", Usage: "skip cache revalidation but still store fresh pages"},
			&cli.StringFlag{Name: "user-agent", Usage: "User-Agent sent to recipe sites"},
			&cli.DurationFlag{Name: "request-timeout", Usage: "per-request timeout (default 10s)"},
			&cli.IntFlag{Name: "max-concurrent", Usage: "maximum in-flight requests (0 = unlimited)"},
			&cli.StringSliceFlag{Name: "disable-source", Usage: "source adapter to disable (repeatable)"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			level, err := logLevel(cfg)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			format := c.String("log-format")
			if format != "console" && format != "json" {
				return cli.Exit(fmt.Sprintf("unknown log format %q", format), exitUsage)
			}
			setupLogging(st.stderr, format, level)
			st.cfg = cfg
			return nil
		},
		Commands: []*cli.Command{
			extractCommand(st),
			sourcesCommand(st),
			ingredientsCommand(st),
			serveCommand(st),
			cacheCommand(st),
		},
	}
}

func logLevel(cfg app.Config) (zerolog.Level, error) {
	if cfg.Verbose && (cfg.LogLevel == "" || cfg.LogLevel == app.DefaultLogLevel) {
		return zerolog.DebugLevel, nil
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return level, nil
}
