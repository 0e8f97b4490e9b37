// Package flagx holds small helpers that let several components parse
// their own flags out of one shared argument list.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-c conf.json" and "-c=conf.json" forms are recognised; a
// token starting with "-" is never taken as a value.
//
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// SplitSwitches separates boolean switches (e.g. "-up") from positional
// arguments. Only names listed in switches are treated as switches; other
// dash-prefixed tokens stay positional.
func SplitSwitches(args []string, switches ...string) (map[string]bool, []string) {
	known := make(map[string]struct{}, len(switches))
	for _, s := range switches {
		known[s] = struct{}{}
	}

	set := make(map[string]bool)
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if _, ok := known[a]; ok {
			set[strings.TrimLeft(a, "-")] = true
			continue
		}
		rest = append(rest, a)
	}
	return set, rest
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// Other arguments are ignored so callers can parse their own flags
// independently. An empty string means no file was requested.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
