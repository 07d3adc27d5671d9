package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// ExtensionPrefix is the prefix of external subcommand binaries.
const ExtensionPrefix = "sfo-"

// RunExtension attempts to find and execute an external sfo-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
//
// Global flags are passed to the extension as SFO_* environment variables,
// so that it opens the same portfolio.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := ExtensionPrefix + subcommand

	lp, err := exec.LookPath(name)
	if err != nil {
		log.Printf("External command %q not found in PATH: %v", name, err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv returns the global flags as environment variables.
func extensionEnv() []string {
	return []string{
		EnvDataDir + "=" + *dataDir,
		EnvInitialCash + "=" + strconv.FormatFloat(*initialCash, 'f', -1, 64),
		EnvDefaultRisk + "=" + strconv.FormatFloat(*defaultRisk, 'f', -1, 64),
		EnvEMAAlpha + "=" + strconv.FormatFloat(*emaAlpha, 'f', -1, 64),
		EnvLivePrices + "=" + strconv.FormatBool(*livePrices),
		EnvQuoteURL + "=" + *quoteURL,
		EnvVerbose + "=" + strconv.FormatBool(*Verbose),
	}
}
