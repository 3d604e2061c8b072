package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/absfs/filecrypt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "FILECRYPT_"

// app holds the state shared by every subcommand
type app struct {
	verbose         bool
	preferencesPath string
	historyPath     string
	noHistory       bool

	fs       *filecrypt.OSFileSystem
	log      *logrus.Logger
	password func(prompt string, confirm bool) ([]byte, error)
}

func newRootCmd() *cobra.Command {
	a := &app{
		fs:       filecrypt.NewOSFileSystem(""),
		log:      logrus.New(),
		password: readPassword,
	}

	rootCmd := &cobra.Command{
		Use:   "filecrypt",
		Short: "Password-based file encryption",
		Long: `filecrypt encrypts files into self-describing containers using
AES-256-GCM, ChaCha20-Poly1305, or both layered.

Keys are derived from a password with Argon2id (or PBKDF2). The password is
read from the FILECRYPT_PASSWORD environment variable or prompted for.

Examples:
  # Encrypt a file with the default settings
  filecrypt encrypt video.mp4

  # Encrypt with both layers and remove the original
  filecrypt encrypt --multi-layer --shred secrets.pdf

  # Decrypt into a chosen file
  filecrypt decrypt video.mp4.encrypted -o video.mp4

  # Show what a container holds without decrypting it
  filecrypt info video.mp4.encrypted`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setFlagsFromEnv(envPrefix, cmd.Flags())
			a.log.SetOutput(cmd.ErrOrStderr())
			a.log.SetLevel(logrus.WarnLevel)
			if a.verbose {
				a.log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	home, _ := os.UserHomeDir()
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&a.preferencesPath, "config", filepath.Join(home, ".filecrypt.yaml"), "preferences file")
	rootCmd.PersistentFlags().StringVar(&a.historyPath, "history-file", filepath.Join(home, ".filecrypt_history.json"), "history file")
	rootCmd.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "do not record operations in the history file")

	rootCmd.AddCommand(
		newEncryptCmd(a),
		newDecryptCmd(a),
		newInfoCmd(a),
		newShredCmd(a),
		newHistoryCmd(a),
	)
	return rootCmd
}

// cryptoFlags are the engine settings a command can override
type cryptoFlags struct {
	algorithm     string
	noArgon2      bool
	noCompression bool
	multiLayer    bool
}

func (f *cryptoFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.algorithm, "algorithm", "a", "", "cipher: aes or chacha20")
	flags.BoolVar(&f.noArgon2, "no-argon2", false, "derive keys with PBKDF2 instead of Argon2id")
	flags.BoolVar(&f.noCompression, "no-compression", false, "do not compress before encrypting")
	flags.BoolVar(&f.multiLayer, "multi-layer", false, "encrypt with ChaCha20-Poly1305 inside AES-256-GCM")
}

// apply overrides cfg with every flag set on the command line
func (f *cryptoFlags) apply(flags *pflag.FlagSet, cfg *filecrypt.Config) error {
	if flags.Changed("algorithm") {
		alg, err := filecrypt.ParseAlgorithm(f.algorithm)
		if err != nil {
			return err
		}
		cfg.Algorithm = alg
	}
	if flags.Changed("no-argon2") {
		cfg.UseMemoryHardKDF = !f.noArgon2
	}
	if flags.Changed("no-compression") {
		cfg.UseCompression = !f.noCompression
	}
	if flags.Changed("multi-layer") {
		cfg.MultiLayer = f.multiLayer
	}
	return nil
}

func (a *app) preferences() (filecrypt.Preferences, error) {
	if a.preferencesPath == "" {
		return filecrypt.DefaultPreferences(), nil
	}
	return filecrypt.LoadPreferences(a.fs, a.preferencesPath)
}

func (a *app) engine(cfg filecrypt.Config) (*filecrypt.Engine, error) {
	return filecrypt.New(a.fs, cfg, filecrypt.WithLogger(a.log))
}

// record appends to the history file; failures are logged, never returned
func (a *app) record(entry filecrypt.HistoryEntry) {
	if a.noHistory || a.historyPath == "" {
		return
	}
	h, err := filecrypt.NewFileHistory(a.fs, a.historyPath, filecrypt.DefaultHistorySize)
	if err == nil {
		err = h.Save(entry)
	}
	if err != nil {
		a.log.WithError(err).Warn("failed to record history")
	}
}

// exitCode maps an error category to a process exit status
func exitCode(err error) int {
	switch filecrypt.KindOf(err) {
	case filecrypt.KindAuthenticationFailure:
		return 2
	case filecrypt.KindInputNotFound:
		return 3
	case filecrypt.KindMalformedContainer, filecrypt.KindAlgorithmMismatch:
		return 4
	default:
		return 1
	}
}

func setFlagsFromEnv(prefix string, fs *pflag.FlagSet) {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if set[f.Name] {
			return
		}
		cleanPrefix := strings.TrimSuffix(prefix, "_")
		name := fmt.Sprintf("%s_%s", cleanPrefix, strings.Replace(strings.ToUpper(f.Name), "-", "_", -1))
		if e, ok := os.LookupEnv(name); ok {
			_ = f.Value.Set(e)
			f.Changed = true
		}
	})
}
