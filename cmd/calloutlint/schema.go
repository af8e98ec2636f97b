package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/artpar/calloutlint/adapters/schemafile"
	"github.com/artpar/calloutlint/config"
	"github.com/spf13/cobra"
)

var structuresCmd = &cobra.Command{
	Use:   "structures",
	Short: "List registered structures",
	RunE:  runStructures,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List registered rules",
	RunE:  runRules,
}

var importCmd = &cobra.Command{
	Use:   "import <schema.yaml>",
	Short: "Copy a schema file into the database",
	Long: `Store every structure and rule of a schema file in the SQLite registry,
creating new entries and replacing existing ones with the same id.

Examples:
  calloutlint import schema.yaml --db calloutlint.db
  CALLOUTLINT_REGISTRY_SOURCE=sqlite calloutlint import schema.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the registry as a schema file",
	Long: `Write every stored structure and rule as a YAML schema file, suitable
for the file registry source or for import.

Examples:
  calloutlint export > schema.yaml
  calloutlint export --db calloutlint.db --output schema.yaml`,
	RunE: runExport,
}

var (
	dbPath     string
	exportPath string
)

func init() {
	rootCmd.AddCommand(structuresCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)

	for _, c := range []*cobra.Command{structuresCmd, rulesCmd, importCmd, exportCmd} {
		c.Flags().StringVar(&dbPath, "db", "", "database file path (uses the sqlite source, bypassing the config file setting)")
	}
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default: stdout)")
}

// useDatabaseFlag points the registry at --db when it is set.
func useDatabaseFlag() {
	if dbPath == "" {
		return
	}
	os.Setenv("CALLOUTLINT_REGISTRY_SOURCE", config.SourceSQLite)
	os.Setenv("CALLOUTLINT_DATABASE_DSN", dbPath)
}

func runStructures(cmd *cobra.Command, args []string) error {
	useDatabaseFlag()
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	structures, err := a.Registry.ListStructures(cmd.Context())
	if err != nil {
		return fmt.Errorf("list structures: %w", err)
	}
	if len(structures) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No structures registered.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tROOT\tCHILDREN\tREQUIRED")
	for _, st := range structures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.ID, st.DisplayName(), st.NestingMode, st.RootType,
			strings.Join(st.ChildTypes, ","), strings.Join(st.RequiredTypes, ","))
	}
	return w.Flush()
}

func runRules(cmd *cobra.Command, args []string) error {
	useDatabaseFlag()
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	rules, err := a.Registry.ListRules(cmd.Context())
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	if len(rules) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rules registered.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSEVERITY\tTYPE\tENABLED\tPATTERN")
	for _, r := range rules {
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Severity, r.EffectivePatternType(), enabled, r.Pattern)
	}
	return w.Flush()
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := schemafile.Load(args[0])
	if err != nil {
		return err
	}

	useDatabaseFlag()
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if !a.Registry.Writable() {
		return errors.New("import needs a writable registry: use --db or registry.source: sqlite")
	}

	ctx := cmd.Context()
	structures, rules := f.Domain()
	var failed []string
	imported := 0
	for _, st := range structures {
		if err := a.Registry.PutStructure(ctx, st); err != nil {
			failed = append(failed, fmt.Sprintf("structure %s: %v", st.ID, err))
			continue
		}
		imported++
	}
	for _, r := range rules {
		if err := a.Registry.PutRule(ctx, r); err != nil {
			failed = append(failed, fmt.Sprintf("rule %s: %v", r.ID, err))
			continue
		}
		imported++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d definitions\n", imported, len(structures)+len(rules))
	if len(failed) > 0 {
		for _, msg := range failed {
			fmt.Fprintln(cmd.ErrOrStderr(), "  "+msg)
		}
		return fmt.Errorf("%d definition(s) failed to import", len(failed))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	useDatabaseFlag()
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	ctx := cmd.Context()
	structures, err := a.Registry.ListStructures(ctx)
	if err != nil {
		return fmt.Errorf("list structures: %w", err)
	}
	rules, err := a.Registry.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	doc := schemafile.FromDomain(structures, rules)
	if exportPath == "" {
		return doc.Encode(cmd.OutOrStdout())
	}

	out, err := os.Create(exportPath)
	if err != nil {
		return err
	}
	if err := doc.Encode(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d structures and %d rules to %s\n", len(structures), len(rules), exportPath)
	return nil
}
