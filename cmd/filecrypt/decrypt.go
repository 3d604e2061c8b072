package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/absfs/filecrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type decryptOptions struct {
	crypto cryptoFlags
	output string
}

func newDecryptCmd(a *app) *cobra.Command {
	opts := &decryptOptions{}

	cmd := &cobra.Command{
		Use:   "decrypt <file>...",
		Short: "Decrypt containers",
		Long: `Decrypt one or more containers. A single container is written next to
itself as <stem>_decrypted<ext> unless --output is given. Several containers
are written to the directory named by --output.

The cipher is read from each container unless --algorithm or --multi-layer
is given, in which case containers encrypted otherwise are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(cmd, a, opts, args)
		},
	}

	opts.crypto.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, or output directory for several files")
	return cmd
}

func runDecrypt(cmd *cobra.Command, a *app, opts *decryptOptions, args []string) error {
	prefs, err := a.preferences()
	if err != nil {
		return err
	}
	base, err := prefs.Config()
	if err != nil {
		return err
	}
	if err := opts.crypto.apply(cmd.Flags(), &base); err != nil {
		return err
	}
	pinned := cmd.Flags().Changed("algorithm") || cmd.Flags().Changed("multi-layer")

	password, err := a.password("Password: ", false)
	if err != nil {
		return err
	}
	defer filecrypt.ZeroBytes(password)

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return a.decryptOne(out, base, pinned, args[0], opts.output, password)
	}

	if opts.output == "" {
		return fmt.Errorf("--output directory is required when decrypting several files")
	}

	// One engine per algorithm tag, in order of first appearance
	var order []string
	groups := map[string][]string{}
	for _, p := range args {
		tag := base.AlgorithmTag()
		if !pinned {
			if md, err := filecrypt.InspectFile(a.fs, p); err == nil {
				tag = md.Algorithm
			}
		}
		if _, ok := groups[tag]; !ok {
			order = append(order, tag)
		}
		groups[tag] = append(groups[tag], p)
	}

	var failed error
	for _, tag := range order {
		engine, err := a.engine(configForTag(base, tag))
		if err != nil {
			return err
		}
		batch, err := filecrypt.NewBatch(engine, filecrypt.DefaultBatchConfig())
		if err != nil {
			return err
		}
		res, err := batch.DecryptFiles(groups[tag], opts.output, password, batchPrinter(out))
		if err != nil {
			return err
		}
		if err := a.finishBatch(out, filecrypt.OperationDecrypt, res, false, 0); err != nil {
			failed = err
		}
	}
	return failed
}

func (a *app) decryptOne(out io.Writer, base filecrypt.Config, pinned bool, input, output string, password []byte) error {
	cfg := base
	md, inspectErr := filecrypt.InspectFile(a.fs, input)
	if inspectErr == nil && !pinned {
		cfg = configForTag(base, md.Algorithm)
	}

	engine, err := a.engine(cfg)
	if err != nil {
		return err
	}

	if output == "" {
		original := ""
		if inspectErr == nil {
			original = md.OriginalFilename
		}
		output = filepath.Join(filepath.Dir(input), filecrypt.DecryptedName(original, input))
	}

	res, err := engine.DecryptFile(input, output, password, milestonePrinter(a))
	alg := ""
	if res != nil {
		alg = res.Algorithm
	}
	a.record(filecrypt.NewHistoryEntry(filecrypt.OperationDecrypt, input, output, alg, err == nil))
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "✓ Decrypted %s -> %s\n", input, output)
	fmt.Fprintf(out, "  algorithm: %s (%s)\n", res.Algorithm, res.KeyDerivation)
	fmt.Fprintf(out, "  original:  %s (%d bytes)\n", res.OriginalFilename, res.DecryptedSize)
	if res.HashVerified {
		color.New(color.FgGreen).Fprintln(out, "  integrity: verified")
	} else {
		color.New(color.FgYellow).Fprintln(out, "  integrity: digest mismatch, treat the output with caution")
	}
	return nil
}

// configForTag returns base adjusted to open containers carrying tag
func configForTag(base filecrypt.Config, tag string) filecrypt.Config {
	cfg := base
	switch tag {
	case filecrypt.TagMultiLayer:
		cfg.MultiLayer = true
	default:
		if alg, err := filecrypt.ParseAlgorithm(tag); err == nil {
			cfg.Algorithm = alg
			cfg.MultiLayer = false
		}
	}
	return cfg
}
