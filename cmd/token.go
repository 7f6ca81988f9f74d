package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4admin/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenSave    bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the development media API",
	Long: `Sign an HS256 token with the jwt_secret from the [server] section.

With --save the token is written to the configured token_file, where the
client picks it up on the next request.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "write the token to token_file")
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := appConfig.Server.JWTSecret
	if secret == "" {
		return errors.New("jwt_secret is not set in the [server] section")
	}

	token, err := auth.Issue([]byte(secret), tokenSubject, tokenTTL)
	if err != nil {
		return err
	}

	if !tokenSave {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}

	path := auth.ExpandHome(appConfig.TokenFile)
	if path == "" {
		return errors.New("token_file is not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
	return nil
}
