package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/relaybot/internal/database"
)

func newChannelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Inspect the channel directory",
	}
	cmd.AddCommand(newChannelsListCmd())
	return cmd
}

func newChannelsListCmd() *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := database.NewDB(cfg.Database.URL, cfg.Database.MaxOpenConns)
			if err != nil {
				log.Error("Failed to connect to database", "url", cfg.Database.URL, "error", err)
				return err
			}
			defer database.CloseDB(db)
			store := database.NewStore(db, log)

			var channels []database.Channel
			if cmd.Flags().Changed("owner") {
				channels, err = store.ListChannelsByOwner(cmd.Context(), owner)
			} else {
				channels, err = store.ListDistinctChannels(cmd.Context())
			}
			if err != nil {
				return err
			}

			return writeChannels(cmd.OutOrStdout(), channels)
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "Only list channels registered by this owner id")
	return cmd
}

func writeChannels(w io.Writer, channels []database.Channel) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OWNER\tCHANNEL\tTITLE\tUSERNAME\tADDED")
	for _, ch := range channels {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n",
			ch.OwnerID, ch.ChannelID, ch.Title, ch.Username.String, ch.AddedAt.Format(time.DateTime))
	}
	return tw.Flush()
}
