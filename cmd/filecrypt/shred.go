package main

import (
	"fmt"
	"io"

	"github.com/absfs/filecrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newShredCmd(a *app) *cobra.Command {
	var (
		passes int
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "shred <file>...",
		Short: "Overwrite files with random data and delete them",
		Long: `Overwrite each file with random bytes for the given number of passes,
flushing to disk after every pass, then delete it.

Journaling filesystems, SSDs and snapshots may keep copies of the data that
the overwrite cannot reach.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("passes") {
				prefs, err := a.preferences()
				if err != nil {
					return err
				}
				passes = prefs.ShredPasses
			}
			if !force {
				return fmt.Errorf("shred permanently destroys %d file(s); pass --force to confirm", len(args))
			}

			out := cmd.OutOrStdout()
			var failed error
			for _, path := range args {
				if err := a.shred(out, path, passes); err != nil {
					color.New(color.FgRed).Fprintf(out, "✗ %s: %v\n", path, err)
					failed = err
				}
			}
			return failed
		},
	}

	cmd.Flags().IntVarP(&passes, "passes", "p", filecrypt.DefaultErasePasses, "overwrite passes")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm destruction")
	return cmd
}

func (a *app) shred(out io.Writer, path string, passes int) error {
	res, err := filecrypt.SecureErase(a.fs, path, passes)
	a.record(filecrypt.NewHistoryEntry(filecrypt.OperationShred, path, "", "", err == nil))
	if err != nil {
		if filecrypt.IsPermissionDenied(err) {
			return fmt.Errorf("permission denied: %w", err)
		}
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Shredded %s (%d passes, %d bytes)\n", res.Path, res.Passes, res.BytesOverwritten)
	return nil
}
