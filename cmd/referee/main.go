package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "referee",
		Short:        "Degen Arena wager settlement referee",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path (YAML); environment overrides with ARENA_ prefix")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime feed and settlement loop",
		RunE:  runServe,
	}
	serveCmd.Flags().Bool("no-settle", false, "serve the API without running the settlement loop")

	settleCmd := &cobra.Command{
		Use:   "settle",
		Short: "Run one settlement pass and exit",
		RunE:  runSettle,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an Argon2id hash for operator.password_hash",
		RunE:  runHashPassword,
	}
	hashCmd.Flags().String("password", "", "password to hash (read from stdin when empty)")

	encryptCmd := &cobra.Command{
		Use:   "encrypt-key",
		Short: "Encrypt the custodial key with aes.key for solana.private_key",
		RunE:  runEncryptKey,
	}
	encryptCmd.Flags().String("key", "", "custodial key to encrypt (read from stdin when empty)")

	root.AddCommand(serveCmd, settleCmd, migrateCmd, hashCmd, encryptCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
