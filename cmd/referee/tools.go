package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Jamarblack/Degen-Arena/internal/adapter/chain"
	pgStorage "github.com/Jamarblack/Degen-Arena/internal/adapter/storage/postgres"
	"github.com/Jamarblack/Degen-Arena/internal/service"

	"github.com/spf13/cobra"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := pgStorage.Migrate(ctx, pool, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
	return nil
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		if password, err = readSecret(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	hash, err := service.NewArgon2HashService().Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runEncryptKey(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.AES.Key == "" {
		return errors.New("aes.key is not configured")
	}

	raw, _ := cmd.Flags().GetString("key")
	if raw == "" {
		if raw, err = readSecret(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	// Refuse to encrypt something that would not load back.
	if _, err := chain.LoadPrivateKey(raw, nil); err != nil {
		return err
	}

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		return err
	}
	sealed, err := encSvc.Encrypt(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), chain.EncryptedKeyPrefix+sealed)
	return nil
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no input")
	}
	return line, nil
}
