// Package schema describes the command tree so callers can discover
// commands and flags without parsing help text.
package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Command struct {
	Path        string    `json:"path"`
	Short       string    `json:"short"`
	Args        string    `json:"args,omitempty"`
	Flags       []Flag    `json:"flags,omitempty"`
	Persistent  []Flag    `json:"persistent_flags,omitempty"`
	Subcommands []Command `json:"subcommands,omitempty"`
}

type Flag struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Usage   string `json:"usage"`
	Default string `json:"default,omitempty"`
}

// Describe returns the subtree rooted at path, a space-separated command
// path relative to root. An empty path describes root.
func Describe(root *cobra.Command, path string) (Command, error) {
	target := root
	if parts := strings.Fields(path); len(parts) > 0 {
		found, rest, err := root.Find(parts)
		if err != nil || len(rest) > 0 || found == root {
			return Command{}, fmt.Errorf("unknown command %q", path)
		}
		target = found
	}
	return describe(target), nil
}

func describe(cmd *cobra.Command) Command {
	out := Command{
		Path:       cmd.CommandPath(),
		Short:      cmd.Short,
		Args:       argsOf(cmd.Use),
		Flags:      flagsOf(cmd.LocalNonPersistentFlags()),
		Persistent: flagsOf(cmd.PersistentFlags()),
	}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		out.Subcommands = append(out.Subcommands, describe(sub))
	}
	return out
}

func argsOf(use string) string {
	_, args, _ := strings.Cut(use, " ")
	return strings.TrimSpace(args)
}

func flagsOf(set *pflag.FlagSet) []Flag {
	var flags []Flag
	set.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		flags = append(flags, Flag{
			Name:    f.Name,
			Type:    f.Value.Type(),
			Usage:   f.Usage,
			Default: f.DefValue,
		})
	})
	return flags
}
