package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yleoer/nowplaying/pkg/bootstrap"
	"github.com/yleoer/nowplaying/pkg/database"
	"github.com/yleoer/nowplaying/pkg/persister"
	"github.com/yleoer/nowplaying/pkg/session"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Observe the page snapshot and rewrite the output file whenever the track changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return ctx.runWatch(runCtx, outputFlag)
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output JSON file (skips the interactive prompt)")
	return cmd
}

func (c *commandContext) runWatch(ctx context.Context, outputFlag string) error {
	logger := c.logger
	ex, err := c.newExtractor()
	if err != nil {
		return err
	}
	src, err := c.newSource()
	if err != nil {
		return err
	}

	var history database.HistoryStore
	if c.cfg.HistoryEnabled {
		if err := c.cfg.EnsureDataDir(); err != nil {
			return err
		}
		history, err = database.NewSQLiteStore(c.cfg.DBPath, logger)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	var sess *session.Session
	flow := bootstrap.Flow{
		Source:    src,
		Extractor: ex,
		Options: bootstrap.Options{
			InitialDelay:  c.cfg.InitialDelay,
			RetryInterval: c.cfg.RetryInterval,
			MaxRetries:    c.cfg.MaxRetries,
		},
		Consent: bootstrap.NewConsent(outputFlag, c.cfg.OutputFile, os.Stdin, c.stdout),
		Start: func(ctx context.Context, outputPath string) error {
			handle, err := persister.OpenFileHandle(outputPath)
			if err != nil {
				return err
			}
			logger.Printf("Writing now playing data to %s", handle.Path())
			sess = session.New(src, ex, handle, session.Options{
				DebounceInterval: c.cfg.DebounceInterval,
				History:          history,
			}, logger)
			if err := sess.Start(ctx); err != nil {
				_ = handle.Close()
				sess = nil
				return err
			}
			return nil
		},
		Logger: logger,
	}

	logger.Printf("Waiting for now playing element in %s...", src.Path())
	if err := flow.Run(ctx); err != nil {
		switch {
		case errors.Is(err, bootstrap.ErrRootNotFound), errors.Is(err, bootstrap.ErrConsentDenied):
			// 只记录诊断信息，不视为失败
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	}

	logger.Println("Application is running. Press Ctrl+C to exit.")
	<-ctx.Done()
	logger.Println("Shutting down...")
	return sess.Stop()
}
