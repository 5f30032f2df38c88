package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yleoer/nowplaying/pkg/database"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently played tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.cfg.EnsureDataDir(); err != nil {
				return err
			}
			store, err := database.NewSQLiteStore(ctx.cfg.DBPath, ctx.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			played, err := store.RecentPlayed(limit)
			if err != nil {
				return err
			}
			if len(played) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracks recorded yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(played))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of tracks to show")
	return cmd
}

func renderHistory(played []database.PlayedTrack) string {
	rows := make([][]string, 0, len(played))
	for _, p := range played {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.PlayedAt.Local().Format("2006-01-02 15:04:05"),
			p.Artist,
			p.Song,
		})
	}
	return renderTable(
		[]string{"#", "Played At", "Artist", "Song"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}
