package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yleoer/nowplaying/pkg/database"
	"github.com/yleoer/nowplaying/pkg/persister"
	"github.com/yleoer/nowplaying/pkg/session"
)

func newOnceCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Extract the current track once and write the output file immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := outputFlag
			if output == "" {
				output = ctx.cfg.OutputFile
			}
			return ctx.runOnce(output)
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output JSON file")
	return cmd
}

func (c *commandContext) runOnce(output string) error {
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
		history, err = database.NewSQLiteStore(c.cfg.DBPath, c.logger)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	handle, err := persister.OpenFileHandle(output)
	if err != nil {
		return err
	}
	sess := session.New(src, ex, handle, session.Options{History: history}, c.logger)
	defer sess.Stop()

	ok, err := sess.Capture()
	if err != nil {
		return fmt.Errorf("capture now playing: %w", err)
	}
	if !ok {
		c.logger.Printf("Warning: No now playing fields found in %s, nothing written.", src.Path())
		return nil
	}
	st := sess.Snapshot()
	fmt.Fprintf(c.stdout, "%s - %s\n", st.Artist, st.Song)
	return nil
}
