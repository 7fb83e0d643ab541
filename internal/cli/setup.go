package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"santasleigh/internal/fsutil"
	"santasleigh/internal/global"
	"santasleigh/internal/supervisor"
	"strings"

	"golang.org/x/term"
)

// Setup options
func SetupMode(cliOpts *global.CommandSet, commandname string, args []string) (exitCode int) {
	var newConfTemplate bool
	var templateConfPath string

	commandFlags := flag.NewFlagSet(commandname, flag.ContinueOnError)
	commandFlags.StringVar(&templateConfPath, "c", global.DefaultConfigPath, "Path to template config file")
	commandFlags.StringVar(&templateConfPath, "config", global.DefaultConfigPath, "Path to template config file")
	commandFlags.BoolVar(&newConfTemplate, "config-template", false, "Create new template config (using config path argument)")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
	}
	if len(args) < 1 {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
		exitCode = ExitUsage
		return
	}
	err := commandFlags.Parse(args)
	if err != nil {
		exitCode = ExitUsage
		return
	}

	if !newConfTemplate {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
		exitCode = ExitUsage
		return
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	err = CreateTemplateConfig(templateConfPath, interactive, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitFailure
		return
	}
	return
}

// Writes the commented template config. An existing file is only replaced
// after an interactive "yes".
func CreateTemplateConfig(path string, interactive bool, in io.Reader, out io.Writer) (err error) {
	if path == "" {
		err = fmt.Errorf("a config path is required")
		return
	}

	// Don't overwrite existing
	_, err = os.Stat(path)
	if err == nil {
		// No terminal - no overwrite
		if !interactive {
			fmt.Fprintf(out, "Existing configuration file present, not overwriting\n")
			return
		}

		fmt.Fprintf(out, "Configuration file already exists at '%s'. Are you SURE you want to overwrite it? (yes/no): ", path)
		reader := bufio.NewReader(in)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if strings.ToLower(input) != "yes" {
			fmt.Fprintf(out, "Not overwriting configuration file\n")
			return
		}
	} else if !os.IsNotExist(err) {
		err = fmt.Errorf("failed checking config file existence: %w", err)
		return
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		err = fmt.Errorf("failed to create configuration directory: %w", err)
		return
	}

	err = fsutil.WriteFileAtomic(path, []byte(supervisor.ConfigTemplate), 0600)
	if err != nil {
		err = fmt.Errorf("failed to write template config: %w", err)
		return
	}
	fmt.Fprintf(out, "Wrote template configuration to %s\n", path)
	return
}
