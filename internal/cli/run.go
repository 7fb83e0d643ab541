package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"santasleigh/internal/global"
	"santasleigh/internal/lifecycle"
	"santasleigh/internal/logctx"
	"santasleigh/internal/supervisor"
)

// Runs the forwarder until a termination signal. Starts the log watcher once outputs are known.
func RunMode(ctx context.Context, logger *logctx.Logger, cliOpts *global.CommandSet, commandname string, args []string) (exitCode int) {
	var configPath string
	commandFlags := flag.NewFlagSet(commandname, flag.ContinueOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
	}
	err := commandFlags.Parse(args)
	if err != nil {
		exitCode = ExitUsage
		return
	}
	if commandFlags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", commandFlags.Args())
		exitCode = ExitUsage
		return
	}

	jsonCfg, err := supervisor.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitFailure
		return
	}
	daemonConfig, err := jsonCfg.NewDaemonConf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitFailure
		return
	}

	// Config log level applies unless overridden on the command line
	if !flagGiven(commandFlags, "v", "verbosity") && daemonConfig.LogLevel > 0 {
		global.Verbosity = daemonConfig.LogLevel
	}
	logctx.SetLogLevel(ctx, global.Verbosity)

	outputs := []io.Writer{os.Stdout}
	if daemonConfig.LogFile != "" {
		fileOutput, err := logger.OpenFileOutput(daemonConfig.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitFailure
			return
		}
		outputs = append(outputs, fileOutput)
	}
	logctx.StartWatcher(logger, outputs...)

	daemon := supervisor.NewDaemon(daemonConfig)
	err = daemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		exitCode = ExitFailure
		return
	}

	go lifecycle.SignalHandler(ctx, daemon)
	daemon.Run()
	return
}
