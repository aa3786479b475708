package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/vdjaccounts/pkg/broker"
)

type tokenFlags struct {
	url          string
	clientID     string
	clientSecret string
	refreshToken string
	scope        string
	timeout      time.Duration
}

// envOr returns the environment value of key, or fallback when unset
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// NewTokenCmd creates the token subcommand.
func NewTokenCmd() *cobra.Command {
	flags := &tokenFlags{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch or refresh a token from the authorization server",
		Long: `Fetch a token with client credentials, or refresh one when
--refresh-token is given, and print it as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.url, "url", envOr("VDJ_BROKER_URL", ""), "authorization server base URL (VDJ_BROKER_URL)")
	cmd.Flags().StringVar(&flags.clientID, "client-id", envOr("VDJ_BROKER_CLIENT_ID", ""), "client id (VDJ_BROKER_CLIENT_ID)")
	cmd.Flags().StringVar(&flags.clientSecret, "client-secret", envOr("VDJ_BROKER_CLIENT_SECRET", ""), "client secret (VDJ_BROKER_CLIENT_SECRET)")
	cmd.Flags().StringVar(&flags.refreshToken, "refresh-token", "", "refresh token to exchange instead of client credentials")
	cmd.Flags().StringVar(&flags.scope, "scope", envOr("VDJ_BROKER_SCOPE", broker.DefaultScope), "token scope (VDJ_BROKER_SCOPE)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", broker.DefaultTimeout, "request timeout")

	return cmd
}

func runToken(cmd *cobra.Command, flags *tokenFlags) error {
	if flags.url == "" {
		return errors.New("authorization server URL is required: set --url or VDJ_BROKER_URL")
	}
	if flags.clientID == "" {
		return errors.New("client id is required")
	}
	if flags.refreshToken == "" && flags.clientSecret == "" {
		return errors.New("client secret or refresh token is required")
	}

	client, err := broker.NewClient(flags.url,
		broker.WithScope(flags.scope),
		broker.WithTimeout(flags.timeout),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var token *broker.Token
	if flags.refreshToken != "" {
		token, err = client.RefreshToken(ctx, flags.clientID, flags.refreshToken)
	} else {
		token, err = client.FetchToken(ctx, flags.clientID, flags.clientSecret)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(token)
}
