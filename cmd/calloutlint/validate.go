package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/domain/callout"
	"github.com/artpar/calloutlint/domain/diagnostic"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a document's callout structure",
	Long: `Validate a document against its structure and every enabled rule.

The structure is detected from the document unless --structure names one.
An unknown structure id falls back to detection. Use "-" to read stdin.

Exits with status 1 when any error-severity result is found.

Examples:
  calloutlint validate journal.md
  calloutlint validate journal.md --structure av-journal
  cat journal.md | calloutlint validate - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Print the structure detected for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

var blocksCmd = &cobra.Command{
	Use:   "blocks <file>",
	Short: "Print the callout tree of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocks,
}

var (
	structureID string
	jsonOutput  bool
)

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(blocksCmd)

	validateCmd.Flags().StringVarP(&structureID, "structure", "s", "", "structure id (default: detect)")
	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// resultJSON is the --json form of a result.
type resultJSON struct {
	ID         string   `json:"id"`
	Severity   string   `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	RuleID     string   `json:"rule_id"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	QuickFixes []string `json:"quick_fixes"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	pass := a.Validation.Run(text, structureID)

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeResultsJSON(out, pass); err != nil {
			return err
		}
	} else {
		writeResults(out, args[0], pass)
	}

	if diagnostic.HasErrors(pass.Results) {
		return fmt.Errorf("%s: %d error(s)", args[0], diagnostic.Count(pass.Results)[rule.SeverityError])
	}
	return nil
}

func writeResults(out io.Writer, name string, pass app.Pass) {
	if pass.Matched {
		fmt.Fprintf(out, "%s: structure %s\n", name, pass.Structure.ID)
	} else {
		fmt.Fprintf(out, "%s: no structure detected\n", name)
	}
	if len(pass.Results) == 0 {
		fmt.Fprintln(out, "no problems found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range pass.Results {
		pos := r.Range.Start
		fmt.Fprintf(w, "%d:%d\t%s\t%s\t%s\n", pos.Line+1, pos.Col+1, r.Severity, r.Message, r.RuleID)
		for i, f := range r.QuickFixes {
			fmt.Fprintf(w, "\t\tfix %d: %s\t%s\n", i, f.Title, r.ID)
		}
	}
	w.Flush()

	counts := diagnostic.Count(pass.Results)
	fmt.Fprintf(out, "\n%d error(s), %d warning(s), %d info\n",
		counts[rule.SeverityError], counts[rule.SeverityWarning], counts[rule.SeverityInfo])
}

func writeResultsJSON(out io.Writer, pass app.Pass) error {
	results := make([]resultJSON, 0, len(pass.Results))
	for _, r := range pass.Results {
		fixes := make([]string, 0, len(r.QuickFixes))
		for _, f := range r.QuickFixes {
			fixes = append(fixes, f.Title)
		}
		results = append(results, resultJSON{
			ID:         r.ID,
			Severity:   string(r.Severity),
			Category:   string(r.Category),
			Message:    r.Message,
			RuleID:     r.RuleID,
			Line:       r.Range.Start.Line + 1,
			Column:     r.Range.Start.Col + 1,
			Start:      r.Span.Start,
			End:        r.Span.End,
			QuickFixes: fixes,
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"structure_id": pass.Structure.ID,
		"matched":      pass.Matched,
		"results":      results,
	})
}

func runDetect(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	st, ok := a.Validation.DetectStructure(text)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no structure detected")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", st.ID, st.DisplayName())
	return nil
}

func runBlocks(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	f := a.Validation.Blocks(text)
	out := cmd.OutOrStdout()
	for _, root := range f.Roots {
		printBlock(out, f, root, 0)
	}
	return nil
}

func printBlock(out io.Writer, f callout.Forest, i, indent int) {
	b := f.Blocks[i]
	title := ""
	if b.Title != "" {
		title = " " + b.Title
	}
	fmt.Fprintf(out, "%s[!%s]%s  (line %d, depth %d)\n", strings.Repeat("  ", indent), b.Type, title, b.Line+1, b.Depth)
	for _, c := range b.Children {
		printBlock(out, f, c, indent+1)
	}
}
