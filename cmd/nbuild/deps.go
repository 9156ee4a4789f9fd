// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbuild/nbuild/internal/binary"
	"github.com/nbuild/nbuild/internal/depgraph"
	"github.com/nbuild/nbuild/internal/target"
	"github.com/nbuild/nbuild/pkg/types"
)

type depsFlagValues struct {
	targetFlagValues

	why      string
	dynamic  bool
	circular bool
}

func newDepsCommand(app *App, flags *rootFlagValues) *cobra.Command {
	df := &depsFlagValues{}
	cmd := &cobra.Command{
		Use:   "deps [binary]",
		Short: "Show the modules each binary is built from",
		Long: `Show the modules each binary is built from.

Without --why every binary is listed with its owned modules followed by the
modules reachable from them. With --why the reference chain from the
binary's modules to the named module is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context(), flags, df.targetFlagValues, nil)
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			binaries, err := selectBinaries(s.target, args)
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			opts := depgraph.Options{IncludeDynamicallyLoaded: df.dynamic, ForceIncludeCircular: df.circular}
			if df.why != "" {
				return commandError(app.stderr, printWhy(app.stdout, s.target, binaries, df.why), flags.verbose)
			}
			for _, b := range binaries {
				printClosure(app.stdout, b, opts)
			}
			return nil
		},
	}
	addTargetFlags(cmd, &df.targetFlagValues)
	cmd.Flags().StringVar(&df.why, "why", "", "print the reference chain to `module`")
	cmd.Flags().BoolVar(&df.dynamic, "dynamic", false, "include dynamically loaded modules")
	cmd.Flags().BoolVar(&df.circular, "circular", false, "follow edges declared circular")
	return cmd
}

// selectBinaries returns the binary named by args, or every binary.
func selectBinaries(t *target.Target, args []string) ([]*binary.Binary, error) {
	if len(args) == 0 {
		return t.Binaries.All(), nil
	}
	b, ok := t.Binaries.Get(types.BinaryName(args[0]))
	if !ok {
		return nil, fmt.Errorf("%w: %s", binary.ErrUnknownBinary, args[0])
	}
	return []*binary.Binary{b}, nil
}

func printClosure(w io.Writer, b *binary.Binary, opts depgraph.Options) {
	fmt.Fprintf(w, "%s (%s)\n", NameStyle.Render(b.Name.String()), b.Type)
	modules := depgraph.BinaryModules(b.Modules(), opts)
	owned := len(b.Modules())
	for i, m := range modules {
		marker := "  "
		if i >= owned {
			marker = "  + "
		}
		home := ""
		if name, ok := m.Binary(); ok && name != b.Name {
			home = " [" + name.String() + "]"
		}
		fmt.Fprintf(w, "%s%s%s\n", marker, m.Name, home)
	}
}

func printWhy(w io.Writer, t *target.Target, binaries []*binary.Binary, name string) error {
	m, ok := t.Modules.Find(types.ModuleName(name))
	if !ok {
		return fmt.Errorf("%w %q", target.ErrUnknownModule, name)
	}
	found := false
	for _, b := range binaries {
		chain := depgraph.FindModuleReferences(b.Modules()).Chain(m)
		if len(chain) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(w, "%s: %s\n", NameStyle.Render(b.Name.String()), depgraph.FormatChain(chain))
	}
	if !found {
		fmt.Fprintf(w, "%s is not referenced by %s\n", m.Name, joinBinaryNames(binaries))
	}
	return nil
}

func joinBinaryNames(binaries []*binary.Binary) string {
	names := make([]string, len(binaries))
	for i, b := range binaries {
		names[i] = b.Name.String()
	}
	return strings.Join(names, ", ")
}
