package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/logging"
	"github.com/IIP-Design/orchestra/internal/manifest"
	"github.com/IIP-Design/orchestra/internal/poller"
	"github.com/IIP-Design/orchestra/internal/server"
	"github.com/IIP-Design/orchestra/internal/sources"
	"github.com/IIP-Design/orchestra/internal/storage"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll every configured website until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
	cmd.Flags().String("addr", "", "Serve the status API on this address, e.g. :8080")
	cmd.Flags().Bool("once", false, "Poll every website once, then exit")
	cmd.Flags().Bool("no-db", false, "Do not write resources to the database")
	cmd.Flags().String("state", "", "Remember stored resources in this file and skip unchanged ones")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	once, _ := cmd.Flags().GetBool("once")
	noDB, _ := cmd.Flags().GetBool("no-db")
	statePath, _ := cmd.Flags().GetString("state")

	env, envName, err := loadEnvironment(cmd, consoleLogger(cmd))
	if err != nil {
		return err
	}

	log, err := logging.New(env.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer log.Close()
	logger := log.Logger.With("environment", envName)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := sources.NewWordPressRegistry(env.Websites, nil, logger)
	if err != nil {
		return err
	}

	sink, closers, err := openSinks(ctx, env, noDB, logger)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if err != nil {
		return err
	}

	state, err := manifest.Load(statePath)
	if err != nil {
		return err
	}
	handler := manifest.NewSink(state, sink).Store

	opts := []poller.Option{}
	if !once {
		opts = append(opts, poller.WithInitialFetch())
	}
	sched := poller.NewScheduler(registry.Clients(), handler, logger, opts...)

	if once {
		for _, p := range sched.Pollers() {
			p.Tick(ctx)
		}
		sched.Wait()
		return reportOnce(cmd, sched.Status())
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	logger.Info("orchestra: polling", "sources", registry.Names())

	srvErr := make(chan error, 1)
	if addr != "" {
		go func() { srvErr <- server.New(sched, envName, logger).Run(ctx, addr) }()
	}

	select {
	case <-ctx.Done():
		if addr != "" {
			// Run returns once shutdown completes, so no trigger can start a
			// fetch after the scheduler is drained.
			err = <-srvErr
		}
	case err = <-srvErr:
		logger.Error("orchestra: status server failed", "error", err)
	}

	logger.Info("orchestra: stopping, waiting for in-flight fetches")
	sched.Stop()
	sched.Wait()
	return err
}

// openSinks connects the database unless noDB is set, and the Kafka
// publisher when the environment has a publish section.
func openSinks(ctx context.Context, env config.Environment, noDB bool, logger *slog.Logger) (storage.Multi, []io.Closer, error) {
	var sinks storage.Multi
	var closers []io.Closer

	if !noDB {
		db, err := storage.Open(ctx, env.Database)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, db)
		store := storage.NewMySQLStore(db, logger)
		for _, w := range env.Websites {
			if err := store.RegisterWebsite(ctx, w.Name, w.URL); err != nil {
				return nil, closers, err
			}
		}
		sinks = append(sinks, store)
	}

	if env.Publish != nil {
		pub := storage.NewKafkaPublisher(*env.Publish)
		closers = append(closers, pub)
		sinks = append(sinks, pub)
	}
	return sinks, closers, nil
}

// reportOnce prints the outcome of a single poll and fails if any source
// failed.
func reportOnce(cmd *cobra.Command, statuses []poller.Status) error {
	failed := 0
	for _, st := range statuses {
		if st.Failures > 0 {
			failed++
		}
	}

	writeOutput(cmd, statuses, func() {
		for _, st := range statuses {
			mark := green + "✓" + reset
			if st.Failures > 0 {
				mark = red + "✗" + reset
			}
			printf(cmd, "  %s %s%s%s", mark, bold, st.Source, reset)
			if st.LastError != "" {
				printf(cmd, "  %s", truncateText(st.LastError, 80))
			}
			printf(cmd, "\n")
		}
	})

	if failed > 0 {
		return fmt.Errorf("orchestra: %d source(s) failed", failed)
	}
	return nil
}
