package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Jamarblack/Degen-Arena/internal/service"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecret(t *testing.T) {
	s, err := readSecret(strings.NewReader("  hunter2 \nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", s)

	s, err = readSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", s)

	_, err = readSecret(strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestHashPassword_FromStdin(t *testing.T) {
	cmd := &cobra.Command{RunE: runHashPassword}
	cmd.Flags().String("password", "", "")
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader("operator-pass\n"))
	cmd.SetOut(out)

	require.NoError(t, cmd.RunE(cmd, nil))

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	ok, err := service.NewArgon2HashService().Verify("operator-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
