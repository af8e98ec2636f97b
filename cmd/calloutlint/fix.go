package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/domain/diagnostic"
	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix <file>",
	Short: "Apply a quick fix to a document",
	Long: `Apply one quick fix offered by validation.

Pick the fix by result id (as printed by validate) and fix index, or choose
it interactively. The fixed document is printed unless --write is given.

Examples:
  calloutlint fix journal.md --result legacy.improper-nesting-0-42
  calloutlint fix journal.md --result legacy.missing-child.dream-diary-0-30 --index 1 --write
  calloutlint fix journal.md --interactive --write`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

var (
	fixResultID    string
	fixIndex       int
	fixInteractive bool
	fixWrite       bool
)

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().StringVarP(&structureID, "structure", "s", "", "structure id (default: detect)")
	fixCmd.Flags().StringVarP(&fixResultID, "result", "r", "", "result id to fix")
	fixCmd.Flags().IntVarP(&fixIndex, "index", "n", 0, "quick fix index within the result")
	fixCmd.Flags().BoolVarP(&fixInteractive, "interactive", "i", false, "choose the fix from a list")
	fixCmd.Flags().BoolVarP(&fixWrite, "write", "w", false, "write the fixed document back to the file")
	fixCmd.MarkFlagsMutuallyExclusive("result", "interactive")
	fixCmd.MarkFlagsOneRequired("result", "interactive")
}

func runFix(cmd *cobra.Command, args []string) error {
	if fixWrite && args[0] == "-" {
		return errors.New("--write cannot be used with stdin")
	}

	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	var fixed string
	if fixInteractive {
		fixed, err = chooseFix(a.Validation, text)
	} else {
		fixed, err = a.Validation.FixByID(text, structureID, fixResultID, fixIndex)
		if errors.Is(err, app.ErrResultNotFound) {
			err = fmt.Errorf("no result %q in %s", fixResultID, args[0])
		}
	}
	if err != nil {
		return err
	}
	if fixed == text {
		fmt.Fprintln(cmd.ErrOrStderr(), "fix made no changes")
	}

	if fixWrite {
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], []byte(fixed), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", args[0])
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), fixed)
	return nil
}

type fixChoice struct {
	result diagnostic.Result
	index  int
}

// chooseFix lists every available fix and applies the selected one.
func chooseFix(svc *app.ValidationService, text string) (string, error) {
	results := svc.Validate(text, structureID)

	var (
		choices []fixChoice
		options []string
	)
	for _, r := range results {
		for i, f := range r.QuickFixes {
			choices = append(choices, fixChoice{result: r, index: i})
			options = append(options, fmt.Sprintf("line %d: %s -> %s", r.Range.Start.Line+1, r.Message, f.Title))
		}
	}
	if len(choices) == 0 {
		return text, errors.New("no quick fixes available")
	}

	var picked int
	prompt := &survey.Select{
		Message:  "Apply which fix?",
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return text, errors.New("aborted")
		}
		return text, err
	}

	if picked < 0 || picked >= len(choices) {
		return text, fmt.Errorf("unknown choice %d", picked)
	}
	c := choices[picked]
	return svc.ApplyQuickFix(text, c.result, c.index), nil
}
