package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fieldwise/internal/cli"
	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/provision"
)

func provisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create an account's custom fields using an access token",
		Long: `Provision custom fields for the account that owns the given access token.

This does what the OAuth callback does in the background, in the foreground,
with progress output. Accounts that already have a field mapping only get
their stored credential refreshed.`,
		RunE: runProvision,
	}

	cmd.Flags().String("token", "", "Jobber access token (or FIELDWISE_TOKEN)")

	return cmd
}

func runProvision(cmd *cobra.Command, _ []string) error {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("FIELDWISE_TOKEN")
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("an access token is required (--token)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	provisioner := provision.New(store, newPlatform(cfg),
		provision.WithProgress(cli.FieldProgress(cmd.ErrOrStderr())))

	result, err := provisioner.Provision(cmd.Context(), token)
	if err != nil {
		return err
	}

	if result.AlreadyProvisioned {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Account already provisioned, credential refreshed"))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %d custom fields", len(result.Created))))
		for _, key := range result.Failed {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError("Failed: " + fields.Label(key)))
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccount(result.Account, provisioner.State(cmd.Context(), result.Account.ID)))
	return nil
}
