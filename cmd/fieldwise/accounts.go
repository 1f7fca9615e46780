package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/fieldwise/internal/cli"
	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/provision"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and manage connected accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsShowCmd())
	cmd.AddCommand(accountsResetCmd())
	cmd.AddCommand(accountsDisconnectCmd())
	cmd.AddCommand(accountsDeleteCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts that have authorized the app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle(fmt.Sprintf("Accounts (%d)", len(accounts))))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccounts(accounts))
			return nil
		},
	}
}

func accountsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ACCOUNT_ID",
		Short: "Show an account's category and field mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.GetAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			state := provision.New(store, newPlatform(cfg)).State(cmd.Context(), account.ID)
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccount(account, state))
			return nil
		},
	}
}

func accountsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset ACCOUNT_ID",
		Short: "Forget an account's field mapping so the next login provisions again",
		Long: `Clear the stored custom field mapping for an account.

The custom fields already created on Jobber are left in place. The next
authorization creates a fresh set of fields for the account's category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := provision.New(store, newPlatform(cfg)).Reset(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Field mapping cleared for " + args[0]))
			return nil
		},
	}
}

func accountsDisconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect ACCOUNT_ID",
		Short: "Disconnect the app from an account and forget its credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			localOnly, _ := cmd.Flags().GetBool("local")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			account, err := store.GetAccount(ctx, args[0])
			if err != nil {
				return err
			}

			if account.Connected() && !localOnly {
				err := newPlatform(cfg).Disconnect(ctx, account.Credential)
				switch {
				case errors.Is(err, common.ErrCredentialInvalid):
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Credential already rejected by Jobber"))
				case err != nil:
					return fmt.Errorf("disconnect %s: %w", account.ID, err)
				}
			}

			if _, err := store.UpdateAccount(ctx, account.ID, model.ClearCredential()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Disconnected " + account.ID))
			return nil
		},
	}

	cmd.Flags().Bool("local", false, "only clear the stored credential, without calling Jobber")
	return cmd
}

func accountsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ACCOUNT_ID",
		Short: "Delete an account and its field mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteAccount(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted " + args[0]))
			return nil
		},
	}
}
