package main

import (
	"fmt"

	"github.com/absfs/filecrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := filecrypt.NewFileHistory(a.fs, a.historyPath, filecrypt.DefaultHistorySize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if clearAll {
				if err := h.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared")
				return nil
			}

			entries, err := h.Recent(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history")
				return nil
			}
			for _, e := range entries {
				status := color.GreenString("ok")
				if !e.Success {
					status = color.RedString("failed")
				}
				fmt.Fprintf(out, "%s  %-7s  %-6s  %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Operation, status, e.InputFile)
				if e.OutputFile != "" {
					fmt.Fprintf(out, " -> %s", e.OutputFile)
				}
				if e.Algorithm != "" {
					fmt.Fprintf(out, " [%s]", e.Algorithm)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all entries")
	return cmd
}
