package main

import (
	"fmt"
	"io"

	"github.com/absfs/filecrypt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type encryptOptions struct {
	crypto    cryptoFlags
	output    string
	shred     bool
	passes    int
	recursive bool
	patterns  []string
}

func newEncryptCmd(a *app) *cobra.Command {
	opts := &encryptOptions{}

	cmd := &cobra.Command{
		Use:   "encrypt <file|folder>...",
		Short: "Encrypt files or folders",
		Long: `Encrypt one or more files. A single file is written to <file>.encrypted
unless --output is given. Several files, or a folder, are written to the
directory named by --output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncrypt(cmd, a, opts, args)
		},
	}

	opts.crypto.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, or output directory for several files")
	cmd.Flags().BoolVar(&opts.shred, "shred", false, "securely erase each original after encrypting it")
	cmd.Flags().IntVar(&opts.passes, "passes", 0, "overwrite passes for --shred")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", true, "include subfolders of folder arguments")
	cmd.Flags().StringSliceVar(&opts.patterns, "pattern", nil, "only encrypt files matching these glob patterns")
	return cmd
}

func runEncrypt(cmd *cobra.Command, a *app, opts *encryptOptions, args []string) error {
	prefs, err := a.preferences()
	if err != nil {
		return err
	}
	cfg, err := prefs.Config()
	if err != nil {
		return err
	}
	if err := opts.crypto.apply(cmd.Flags(), &cfg); err != nil {
		return err
	}

	shred := prefs.ShredAfterEncrypt
	if cmd.Flags().Changed("shred") {
		shred = opts.shred
	}
	passes := prefs.ShredPasses
	if cmd.Flags().Changed("passes") {
		passes = opts.passes
	}
	if shred {
		if err := filecrypt.ValidatePasses(passes); err != nil {
			return err
		}
	}

	engine, err := a.engine(cfg)
	if err != nil {
		return err
	}

	password, err := a.password("Password: ", true)
	if err != nil {
		return err
	}
	defer filecrypt.ZeroBytes(password)

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		info, err := a.fs.Stat(args[0])
		if err != nil || !info.IsDir() {
			return encryptOne(a, engine, out, args[0], opts.output, password, shred, passes)
		}
	}

	if opts.output == "" {
		return fmt.Errorf("--output directory is required when encrypting several files or a folder")
	}
	batch, err := filecrypt.NewBatch(engine, filecrypt.DefaultBatchConfig())
	if err != nil {
		return err
	}

	var files []string
	for _, arg := range args {
		info, err := a.fs.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)
			continue
		}
		res, err := batch.EncryptFolder(arg, opts.output, password, filecrypt.FolderOptions{
			Recursive: opts.recursive,
			Patterns:  opts.patterns,
		}, batchPrinter(out))
		if err != nil {
			return err
		}
		if err := a.finishBatch(out, filecrypt.OperationEncrypt, res, shred, passes); err != nil {
			return err
		}
	}

	if len(files) > 0 {
		res, err := batch.EncryptFiles(files, opts.output, password, batchPrinter(out))
		if err != nil {
			return err
		}
		return a.finishBatch(out, filecrypt.OperationEncrypt, res, shred, passes)
	}
	return nil
}

func encryptOne(a *app, engine *filecrypt.Engine, out io.Writer, input, output string, password []byte, shred bool, passes int) error {
	if output == "" {
		output = input + filecrypt.EncryptedExtension
	}

	res, err := engine.EncryptFile(input, output, password, milestonePrinter(a))
	a.record(filecrypt.NewHistoryEntry(filecrypt.OperationEncrypt, input, output, algorithmOf(res), err == nil))
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "✓ Encrypted %s -> %s\n", input, output)
	fmt.Fprintf(out, "  algorithm:   %s (%s)\n", res.Algorithm, res.KeyDerivation)
	fmt.Fprintf(out, "  size:        %d -> %d bytes\n", res.OriginalSize, res.EncryptedSize)
	if res.CompressedSize != res.OriginalSize {
		fmt.Fprintf(out, "  compression: %.2f%%\n", res.CompressionRatio)
	}

	if shred {
		return a.shred(out, input, passes)
	}
	return nil
}

func algorithmOf(res *filecrypt.EncryptResult) string {
	if res == nil {
		return ""
	}
	return res.Algorithm
}

// finishBatch prints a batch summary, records history and shreds the
// originals of successful files
func (a *app) finishBatch(out io.Writer, op filecrypt.Operation, res *filecrypt.BatchResult, shred bool, passes int) error {
	if res.Message != "" {
		color.New(color.FgYellow).Fprintf(out, "! %s\n", res.Message)
		return nil
	}

	for _, f := range res.Files {
		alg := ""
		if f.Encrypt != nil {
			alg = f.Encrypt.Algorithm
		} else if f.Decrypt != nil {
			alg = f.Decrypt.Algorithm
		}
		a.record(filecrypt.NewHistoryEntry(op, f.Input, f.Output, alg, f.Succeeded()))

		if f.Err != nil {
			color.New(color.FgRed).Fprintf(out, "✗ %s: %v\n", f.Input, f.Err)
			continue
		}
		color.New(color.FgGreen).Fprintf(out, "✓ %s -> %s\n", f.Input, f.Output)
		if shred && op == filecrypt.OperationEncrypt {
			if err := a.shred(out, f.Input, passes); err != nil {
				color.New(color.FgRed).Fprintf(out, "✗ shred %s: %v\n", f.Input, err)
			}
		}
	}

	fmt.Fprintf(out, "%d of %d files succeeded\n", res.Succeeded, res.Total)
	return res.Err()
}

func batchPrinter(out io.Writer) filecrypt.BatchProgress {
	return func(index, total int, name string) {
		fmt.Fprintf(out, "[%d/%d] %s\n", index, total, name)
	}
}

// milestonePrinter logs engine milestones at debug level
func milestonePrinter(a *app) filecrypt.ProgressFunc {
	return func(m filecrypt.Milestone) {
		a.log.Debugf("%3d%% %s", m.Percent, m.Stage)
	}
}
