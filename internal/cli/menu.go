package cli

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"santasleigh/internal/global"
	"slices"
	"strings"
	"text/tabwriter"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Exit status: 0 on clean shutdown, 1 on startup failure, 2 on usage error.
`
)

// Prints usage for the root menu or one of its commands to stdout
func PrintHelpMenu(fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	writeHelpMenu(os.Stdout, os.Args[0], fs, command, rootCmd)
}

func writeHelpMenu(out io.Writer, program string, fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	if command == "" || command == RootCLICommand {
		fmt.Fprintf(out, "Usage: %s [options] <command>\n\n", program)
		fmt.Fprintln(out, rootCmd.Description)
		fmt.Fprintln(out, rootCmd.FullDescription)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Commands:")
		table := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range slices.Sorted(maps.Keys(rootCmd.ChildCommands)) {
			fmt.Fprintf(table, "    %s\t- %s\n", name, rootCmd.ChildCommands[name].Description)
		}
		table.Flush()
		fmt.Fprintln(out)

		writeFlagOptions(out, fs)
		fmt.Fprint(out, helpMenuTrailer)
		return
	}

	cmd, ok := rootCmd.ChildCommands[command]
	if !ok {
		fmt.Fprintf(out, "Unknown command: %s\n", command)
		return
	}
	usage := fmt.Sprintf("%s %s", program, cmd.CommandName)
	if cmd.UsageOption != "" {
		usage += " " + cmd.UsageOption
	}
	fmt.Fprintf(out, "Usage: %s\n\n", usage)
	if cmd.FullDescription != "" {
		fmt.Fprintf(out, "  Description:\n    %s\n\n", cmd.FullDescription)
	}
	writeFlagOptions(out, fs)
}

// Short and long spellings of one option share a usage string and are printed on one line
func writeFlagOptions(out io.Writer, fs *flag.FlagSet) {
	type option struct {
		names      []string
		usage      string
		defaultVal string
	}

	var options []*option
	byUsage := make(map[string]*option)
	fs.VisitAll(func(arg *flag.Flag) {
		name := "--" + arg.Name
		if len(arg.Name) == 1 {
			name = "-" + arg.Name
		}
		if opt, seen := byUsage[arg.Usage]; seen {
			opt.names = append(opt.names, name)
			return
		}
		opt := &option{names: []string{name}, usage: arg.Usage, defaultVal: arg.DefValue}
		byUsage[arg.Usage] = opt
		options = append(options, opt)
	})
	if len(options) == 0 {
		return
	}

	for _, opt := range options {
		slices.SortFunc(opt.names, func(a, b string) int { return len(a) - len(b) })
	}
	slices.SortFunc(options, func(a, b *option) int {
		return strings.Compare(strings.TrimLeft(a.names[0], "-"), strings.TrimLeft(b.names[0], "-"))
	})

	fmt.Fprintln(out, "  Options:")
	table := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, opt := range options {
		names := strings.Join(opt.names, ", ")
		if strings.HasPrefix(names, "--") {
			names = "    " + names // under the long spelling of paired options
		}
		desc := opt.usage
		if opt.defaultVal != "" && opt.defaultVal != "false" && opt.defaultVal != "0" {
			desc += fmt.Sprintf(" [default: %s]", opt.defaultVal)
		}
		fmt.Fprintf(table, "    %s\t%s\n", names, desc)
	}
	table.Flush()
}
