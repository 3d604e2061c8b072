package main

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/absfs/filecrypt"
	"golang.org/x/term"
)

// PasswordEnvVar supplies the password non-interactively
const PasswordEnvVar = "FILECRYPT_PASSWORD"

// readPassword returns the password from PasswordEnvVar, or prompts for it.
// With confirm set the password is asked for twice.
func readPassword(prompt string, confirm bool) ([]byte, error) {
	if env, ok := os.LookupEnv(PasswordEnvVar); ok {
		return []byte(env), nil
	}

	password, err := promptPassword(prompt)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return password, nil
	}

	again, err := promptPassword("Confirm password: ")
	if err != nil {
		filecrypt.ZeroBytes(password)
		return nil, err
	}
	defer filecrypt.ZeroBytes(again)

	if !bytes.Equal(password, again) {
		filecrypt.ZeroBytes(password)
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	var password []byte
	var err error

	if term.IsTerminal(int(syscall.Stdin)) {
		password, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
	} else {
		// STDIN is piped, fall back to the controlling terminal
		tty, ttyErr := os.Open("/dev/tty")
		if ttyErr != nil {
			if runtime.GOOS == "windows" {
				return nil, fmt.Errorf("password must be set via %s when STDIN is piped", PasswordEnvVar)
			}
			return nil, fmt.Errorf("cannot read password: STDIN is piped and /dev/tty is not available, set %s", PasswordEnvVar)
		}
		defer tty.Close()

		password, err = term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(os.Stderr)
	}

	if err != nil {
		return nil, err
	}
	return password, nil
}

