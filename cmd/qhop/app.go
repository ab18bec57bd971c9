package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ottermq/qhop/config"
	qerrors "github.com/ottermq/qhop/internal/core/errors"
	"github.com/ottermq/qhop/internal/journal"
	"github.com/ottermq/qhop/internal/management"
	"github.com/ottermq/qhop/internal/transport"
	"github.com/ottermq/qhop/pkg/logger"
	"github.com/ottermq/qhop/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitOK         = 0
	exitAborted    = 1
	exitValidation = 2
	exitCleanup    = 3
)

// app holds what every command shares: configuration, output streams and
// the collaborators built from them before a command runs.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	logger   zerolog.Logger
	metrics  *metrics.Collector
	closeLog func() error

	// dialer overrides the AMQP dialer built from cfg.
	dialer transport.Dialer
	// logWriter overrides the log destination built from cfg.
	logWriter io.Writer
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) *app {
	return &app{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		logger:   zerolog.Nop(),
		closeLog: func() error { return nil },
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "qhop",
		Short:         "Migrate RabbitMQ classic queues to quorum queues",
		Long:          "qhop analyzes RabbitMQ queues for migration to another queue type and migrates them in place, keeping their names, bindings and messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	cfg := a.cfg
	flags := root.PersistentFlags()
	flags.StringVar(&cfg.ManagementURL, "management-url", cfg.ManagementURL, "RabbitMQ management API base URL")
	flags.StringVar(&cfg.AMQPHost, "amqp-host", cfg.AMQPHost, "AMQP host")
	flags.IntVar(&cfg.AMQPPort, "amqp-port", cfg.AMQPPort, "AMQP port")
	flags.BoolVar(&cfg.AMQPTLS, "amqp-tls", cfg.AMQPTLS, "connect to AMQP over TLS")
	flags.StringVarP(&cfg.Username, "username", "u", cfg.Username, "broker user name")
	flags.StringVarP(&cfg.Password, "password", "p", cfg.Password, "broker password")
	flags.StringVar(&cfg.VHost, "vhost", cfg.VHost, "virtual host")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file; empty logs to stderr")
	flags.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "migration journal database; empty disables it")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this file after the command")

	root.AddCommand(
		a.planCommand(),
		a.migrateCommand(),
		a.queuesCommand(),
		a.historyCommand(),
		a.versionCommand(),
	)
	return root
}

// execute runs the command line and returns the process exit status.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		// a failed command skips PersistentPostRunE
		if terr := a.teardown(); terr != nil {
			a.logger.Warn().Err(terr).Msg("Teardown failed")
		}
		var reported *reportedError
		if !errors.As(err, &reported) {
			color.New(color.FgRed).Fprintf(a.stderr, "Error: %v\n", err)
		}
	}
	return exitCode(err)
}

func (a *app) setup() error {
	w := a.logWriter
	if w == nil {
		var err error
		w, a.closeLog, err = logger.OpenFile(a.cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
	}
	a.logger = logger.Init(a.cfg.LogLevel, w)
	a.metrics = metrics.NewCollector(&metrics.Config{Enabled: a.cfg.MetricsFile != ""})
	return nil
}

// teardown writes the metrics textfile and closes the log. It is safe to call
// more than once.
func (a *app) teardown() error {
	var errs []error
	if a.metrics != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
		a.metrics = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

func (a *app) managementClient() *management.Client {
	return management.NewClient(management.Options{
		BaseURL:      a.cfg.ManagementURL,
		Username:     a.cfg.Username,
		Password:     a.cfg.Password,
		Timeout:      a.cfg.HTTPTimeout,
		RetryMax:     a.cfg.HTTPRetryMax,
		RetryWaitMin: a.cfg.HTTPRetryWaitMin,
		RetryWaitMax: a.cfg.HTTPRetryWaitMax,
		Logger:       a.logger.With().Str("component", "management").Logger(),
	})
}

func (a *app) amqpDialer() transport.Dialer {
	if a.dialer != nil {
		return a.dialer
	}
	return &transport.AMQPDialer{
		Host:     a.cfg.AMQPHost,
		Port:     a.cfg.AMQPPort,
		Username: a.cfg.Username,
		Password: a.cfg.Password,
		TLS:      a.cfg.AMQPTLS,
		Logger:   a.logger.With().Str("component", "amqp").Logger(),
	}
}

// openJournal returns nil when the journal is disabled.
func (a *app) openJournal() (*journal.Journal, error) {
	if a.cfg.JournalPath == "" {
		return nil, nil
	}
	j, err := journal.Open(a.cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

// reportedError wraps an error whose details were already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case qerrors.Is(err, qerrors.KindValidation):
		return exitValidation
	case qerrors.KindOf(err) == qerrors.KindCleanup:
		return exitCleanup
	default:
		return exitAborted
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
