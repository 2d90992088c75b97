package cmd

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/shell"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize LINE...",
	Short: "Show how a command line is split and planned without running it.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := shellConfig()
		if err != nil {
			return err
		}

		tokenizer := shell.NewTokenizer(afero.NewOsFs(), env.FromOS().Home)
		tokenizer.MaxTokens = configuration.MaxTokens
		tokenizer.MaxTokenLength = configuration.MaxTokenLength

		printPlan(cmd, tokenizer.Tokenize(strings.Join(args, " ")))
		return nil
	},
}

func printPlan(cmd *cobra.Command, tokens shell.Tokens) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Tokens:")
	for i, tok := range tokens {
		fmt.Fprintf(w, "  %2d %-28s %q\n", i, tok.Op, tok.Text)
	}

	if err := shell.Validate(tokens); err != nil {
		fmt.Fprintf(w, "Invalid: %v\n", err)
		return
	}

	for i, link := range shell.Split(tokens) {
		plan := shell.NewPlan(link.Tokens)

		fmt.Fprintf(w, "Pipeline %d:\n", i+1)
		for stage := 0; stage < plan.Stages; stage++ {
			fmt.Fprintf(w, "  stage %d: %q\n", stage+1, plan.StageArgv(stage))
		}
		for slot := shell.Slot(0); int(slot) < shell.NumSlots; slot++ {
			if r := plan.Redirect(slot); r != nil {
				fmt.Fprintf(w, "  %s -> %q (append: %v)\n", slot, r.Filename, r.Append)
			}
		}
		if plan.Background {
			fmt.Fprintln(w, "  background")
		}
		if link.Next != shell.Constant {
			fmt.Fprintf(w, "  then on %s\n", link.Next.Lexeme())
		}
	}
}

func init() {
	rootCmd.AddCommand(tokenizeCmd)
}
