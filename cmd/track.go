package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <name>...",
	Short: "Track an insider or official by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, name := range args {
			if err := st.Track(ctx, name); err != nil {
				return eris.Wrapf(err, "track %q", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracking %s\n", strings.TrimSpace(name))
		}
		return nil
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <name>...",
	Short: "Stop tracking a name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, name := range args {
			if err := st.Untrack(ctx, name); err != nil {
				return eris.Wrapf(err, "untrack %q", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "untracked %s\n", name)
		}
		return nil
	},
}

var trackedCmd = &cobra.Command{
	Use:   "tracked",
	Short: "List tracked names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		names, err := st.ListTracked(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackCmd, untrackCmd, trackedCmd)
}
