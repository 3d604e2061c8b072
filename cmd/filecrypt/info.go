package main

import (
	"fmt"

	"github.com/absfs/filecrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show container metadata without decrypting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := filecrypt.InspectFile(a.fs, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.Bold).Fprintf(out, "%s\n", args[0])
			fmt.Fprintf(out, "  format version:  %d\n", md.FormatVersion)
			fmt.Fprintf(out, "  algorithm:       %s\n", md.Algorithm)
			fmt.Fprintf(out, "  key derivation:  %s\n", md.KeyDerivation)
			for i, layer := range md.Layers {
				fmt.Fprintf(out, "  layer %d:         %s\n", i+1, layer.Algorithm)
			}
			fmt.Fprintf(out, "  original name:   %s\n", md.OriginalFilename)
			fmt.Fprintf(out, "  file type:       %s\n", md.FileType)
			fmt.Fprintf(out, "  original size:   %d bytes\n", md.FileSize)
			if md.Compression {
				fmt.Fprintf(out, "  compressed size: %d bytes (%.2f%%)\n", md.CompressedSize, md.CompressionRatio)
			} else {
				fmt.Fprintln(out, "  compression:     off")
			}
			fmt.Fprintf(out, "  sha256:          %s\n", md.OriginalHash)
			return nil
		},
	}
}
