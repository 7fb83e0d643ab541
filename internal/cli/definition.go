package cli

import "santasleigh/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Santa Sleigh",
		FullDescription: "  Forwards endpoint security telemetry logs to a remote collector",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	root.ChildCommands["run"] = &global.CommandSet{
		CommandName:     "run",
		UsageOption:     "[-c config]",
		Description:     "Run the Forwarder",
		FullDescription: "Tails the configured telemetry log, batches events and delivers them to the configured sink until stopped",
		ChildCommands:   nil,
	}

	// Setup
	root.ChildCommands["configure"] = &global.CommandSet{
		CommandName:     "configure",
		UsageOption:     "--config-template [-c path]",
		Description:     "Setup Actions",
		FullDescription: "Generate configuration files",
		ChildCommands:   nil,
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		UsageOption:     "[-v]",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	global.CmdOpts = root
	return
}
