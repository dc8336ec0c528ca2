package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [keys...]",
		Short: "Remove stored snapshots",
		Long:  "Remove the snapshots stored under the given keys, or every stored snapshot when no key is given.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return c.app.Clean(cmd.Context())
			}

			var errs error
			for _, key := range args {
				errs = errors.Join(errs, c.app.Delete(cmd.Context(), key))
			}
			return errs
		},
	}
}
