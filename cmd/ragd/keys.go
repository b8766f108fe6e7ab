package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsetlabs/ragd/internal/config"
	"github.com/docsetlabs/ragd/internal/docstore"
)

var (
	keyTenant string
	keyScope  string
	keyName   string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a tenant",
	Long: `Create an API key bound to a tenant and retrieval scope.

Examples:
  # Key whose scope defaults to the tenant id
  ragd keys create --tenant acme

  # Key with a separate retrieval partition
  ragd keys create --tenant acme --scope acme-staging --name ci`,
	RunE: runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	keysCreateCmd.Flags().StringVar(&keyTenant, "tenant", "", "tenant id (required)")
	keysCreateCmd.Flags().StringVar(&keyScope, "scope", "", "retrieval scope key (defaults to the tenant id)")
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "human-readable key label")
	_ = keysCreateCmd.MarkFlagRequired("tenant")

	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)
}

func openMetadata() (*docstore.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return docstore.New(dataDir(cfg))
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	store, err := openMetadata()
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := store.CreateKey(cmd.Context(), keyTenant, keyScope, keyName)
	if err != nil {
		return fmt.Errorf("creating key: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	store, err := openMetadata()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RevokeKey(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "revoked")
	return nil
}
