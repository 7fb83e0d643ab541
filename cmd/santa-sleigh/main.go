package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"santasleigh/internal/cli"
	"santasleigh/internal/global"
	"santasleigh/internal/logctx"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	cliOpts := cli.DefineOptions()

	args := os.Args
	commandFlags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	cli.SetGlobalArguments(commandFlags)

	commandFlags.Usage = func() {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
	}
	if len(args) < 2 {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		return cli.ExitUsage
	}
	err := commandFlags.Parse(args[1:])
	if err != nil {
		return cli.ExitUsage
	}
	if commandFlags.NArg() < 1 {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		return cli.ExitUsage
	}

	// Retrieve command and args
	command := commandFlags.Arg(0)
	args = commandFlags.Args()[1:]

	// Setting global logging
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logctx.NewLogger("global", global.Verbosity, ctx.Done()) // New logger tied to global
	ctx = logctx.WithLogger(ctx, logger)                               // Add logger to global ctx

	// Process commands
	switch command {
	case "run":
		// Starts the watcher itself once log outputs are known
		exitCode = cli.RunMode(ctx, logger, cliOpts, command, args)
	case "configure":
		logctx.StartWatcher(logger, os.Stdout)
		exitCode = cli.SetupMode(cliOpts, command, args)
	case "version":
		logctx.StartWatcher(logger, os.Stdout)
		if len(args) > 0 && (args[0] == "--verbosity" || args[0] == "-v") {
			fmt.Printf("%s %s\n", global.ProgBaseName, global.ProgVersion)
			fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		} else {
			fmt.Println(global.ProgVersion)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, cliOpts)
		exitCode = cli.ExitUsage
	}

	// Finish up any stdout writes for global logger
	cancel()
	logger.Wake()
	logger.Wait()
	return
}
