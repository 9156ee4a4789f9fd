// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbuild/nbuild/internal/binary"
	"github.com/nbuild/nbuild/internal/fsitem"
)

type describeFlagValues struct {
	targetFlagValues

	json     bool
	products bool
}

func newDescribeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	df := &describeFlagValues{}
	cmd := &cobra.Command{
		Use:   "describe <binary>",
		Short: "Describe a binary and the modules it compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandError(app.stderr, runDescribe(cmd, app, flags, df, args[0]), flags.verbose)
		},
	}
	addTargetFlags(cmd, &df.targetFlagValues)
	cmd.Flags().BoolVar(&df.json, "json", false, "print the output file, type and modules as JSON")
	cmd.Flags().BoolVar(&df.products, "products", false, "list the files a build produces")
	return cmd
}

func runDescribe(cmd *cobra.Command, app *App, flags *rootFlagValues, df *describeFlagValues, name string) error {
	s, err := app.openSession(cmd.Context(), flags, df.targetFlagValues, nil)
	if err != nil {
		return err
	}
	binaries, err := selectBinaries(s.target, []string{name})
	if err != nil {
		return err
	}
	b := binaries[0]

	if df.json {
		return b.ExportJSON(app.stdout)
	}

	tc, _, err := s.toolchain()
	if err != nil {
		return err
	}
	if df.products {
		var products binary.Products
		err := b.GetBuildProducts(tc, s.cache, &products, binary.ProductOptions{
			CreateDebugInfo: s.cfg.CreateDebugInfo,
			Precompile:      s.cfg.Precompile,
			DisableLinking:  s.cfg.DisableLinking,
		})
		if err != nil {
			return err
		}
		for _, p := range products.Items() {
			fmt.Fprintf(app.stdout, "%-18s %s\n", p.Type, relativeTo(s.target.ProjectDir, p.Path))
		}
		return nil
	}

	printProjectFiles(app.stdout, s.target.ProjectDir, b.ProjectFileData(s.target.BuildContext(tc)))
	printOwnership(app.stdout, s, b)
	return nil
}

// printOwnership lists the output the binary was declared with and the
// modules it owns outside the engine directory.
func printOwnership(w io.Writer, s *session, b *binary.Binary) {
	if out, err := b.SingleOriginalOutput(); err == nil {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("output:"), relativeTo(s.target.ProjectDir, string(out)))
	}
	var engine *fsitem.DirectoryItem
	if s.target.EngineDir != "" {
		engine = s.cache.GetDirectory(s.target.EngineDir)
	}
	var names []string
	for _, m := range b.FindGameModules(engine) {
		names = append(names, m.Name.String())
	}
	if len(names) > 0 {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("game modules:"), strings.Join(names, " "))
	}
}

func printProjectFiles(w io.Writer, projectDir string, data binary.ProjectFiles) {
	fmt.Fprintf(w, "%s (%s)\n", NameStyle.Render(data.Binary.String()), data.Type)
	if env := data.CompileEnvironment; env != nil && len(env.Definitions) > 0 {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("definitions:"), strings.Join(env.Definitions, " "))
	}
	for _, m := range data.Modules {
		fmt.Fprintf(w, "  %s  %s\n", NameStyle.Render(m.Name.String()), relativeTo(projectDir, m.Directory))
		for _, d := range m.Definitions {
			fmt.Fprintf(w, "    -D%s\n", d)
		}
		for _, inc := range m.IncludePaths {
			fmt.Fprintf(w, "    -I%s\n", relativeTo(projectDir, inc))
		}
	}
}
