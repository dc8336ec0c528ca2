package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/fsnap/internal/app"
)

func (c *CLI) newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <key>",
		Short: "Capture the state of files and directories under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetStringArray("file")
			dirs, _ := cmd.Flags().GetStringArray("dir")
			missing, _ := cmd.Flags().GetStringArray("missing")
			hash, _ := cmd.Flags().GetBool("hash")
			timestamp, _ := cmd.Flags().GetBool("timestamp")
			stats, _ := cmd.Flags().GetBool("stats")

			return c.app.Snapshot(cmd.Context(), args[0], app.SnapshotOptions{
				Files:       files,
				Directories: dirs,
				Missing:     missing,
				Hash:        hash,
				Timestamp:   timestamp,
				Stats:       stats,
			})
		},
	}
	cmd.Flags().StringArrayP("file", "f", nil, "File to track (repeatable)")
	cmd.Flags().StringArrayP("dir", "d", nil, "Directory to track recursively (repeatable)")
	cmd.Flags().StringArrayP("missing", "m", nil, "Path expected not to exist (repeatable)")
	cmd.Flags().Bool("hash", false, "Record content hashes")
	cmd.Flags().Bool("timestamp", false, "Record timestamps (default unless --hash is given)")
	cmd.Flags().Bool("stats", false, "Log sharing and cache statistics")
	return cmd
}
