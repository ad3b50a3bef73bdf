package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maktabahq/maktaba/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage issued API keys",
		Long:  "List and revoke API keys from the command line. Keys are owner-scoped, so every subcommand takes the owning developer's email.",
	}

	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a developer's API keys",
		Example: `  maktaba key list --email dev@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(email, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owning developer's email (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runKeyList(email string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no developer account with email %q", email)
	}

	keys, err := st.ListAPIKeysByOwner(ctx, user.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys for %s.\n", email)
		return nil
	}

	fmt.Printf("%-36s %-12s %-24s %-20s\n", "ID", "PREFIX", "NAME", "CREATED")
	fmt.Printf("%-36s %-12s %-24s %-20s\n", "--", "------", "----", "-------")
	for _, k := range keys {
		fmt.Printf("%-36s %-12s %-24s %-20s\n", k.ID, k.KeyPrefix, k.Name, k.CreatedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:     "revoke <key-id>",
		Short:   "Revoke an API key",
		Long:    "Invalidate a key at the credential store and remove its metadata. The key stops verifying immediately.",
		Example: `  maktaba key revoke 6b1f... --email dev@example.com`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0], email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owning developer's email (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runKeyRevoke(keyID, email string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	creds, err := newCredstore(cfg, st)
	if err != nil {
		return err
	}

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no developer account with email %q", email)
	}

	keySvc := service.NewKeyService(st, creds, newLogger(cfg, false))
	if err := keySvc.Revoke(ctx, user.ID, keyID); err != nil {
		return err
	}

	fmt.Printf("Revoked API key %s\n", keyID)
	return nil
}
