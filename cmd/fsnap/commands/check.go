package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/ui/output"
	"go.trai.ch/fsnap/internal/ui/style"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <key>",
		Short: "Tell whether a stored snapshot still matches the filesystem",
		Long: "Tell whether a stored snapshot still matches the filesystem.\n" +
			"Exits with status 2 when the snapshot is no longer valid.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, _ := cmd.Flags().GetBool("stats")

			valid, err := c.app.Check(cmd.Context(), args[0], stats)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, style.New(output.Renderer(out)).Verdict(valid))
			if !valid {
				return domain.ErrSnapshotInvalid
			}
			return nil
		},
	}
	cmd.Flags().Bool("stats", false, "Log sharing and cache statistics")
	return cmd
}
