package main

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/artpar/calloutlint/adapters/hasher"
	"github.com/artpar/calloutlint/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Create an admin token for registry writes",
	Long: `Generate an admin token and its bcrypt hash.

The token guards PUT/DELETE on /v1/structures and /v1/rules. Keep the token
secret and put only the hash in the configuration.

If --prompt is given you will be asked for a token of your own instead.

Examples:
  calloutlint token
  calloutlint token --prompt`,
	RunE: runToken,
}

var tokenPrompt bool

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().BoolVar(&tokenPrompt, "prompt", false, "enter the token instead of generating one")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	var token string
	if tokenPrompt {
		prompt := &survey.Password{Message: "Admin token:"}
		if err := survey.AskOne(prompt, &token, survey.WithValidator(survey.MinLength(12))); err != nil {
			return err
		}
	} else {
		token, err = hasher.GenerateToken(cfg.Auth.TokenPrefix)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
	}
	if token == "" {
		return errors.New("empty token")
	}

	hash, err := hasher.NewBcrypt(0).Hash(token)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	out := cmd.OutOrStdout()
	if !tokenPrompt {
		fmt.Fprintf(out, "Token: %s\n\n", token)
	}
	fmt.Fprintln(out, "Add to calloutlint.yaml:")
	fmt.Fprintln(out, "  auth:")
	fmt.Fprintf(out, "    admin_token_hash: '%s'\n\n", hash)
	fmt.Fprintln(out, "Or set:")
	fmt.Fprintf(out, "  CALLOUTLINT_ADMIN_TOKEN_HASH='%s'\n", hash)
	return nil
}
