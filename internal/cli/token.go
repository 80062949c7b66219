package cli

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/gatehouse/pkg/authsdk"
)

type TokenOptions struct {
	IssuerURL string
	BasePath  string
	Email     string
	Password  string
	// KeepSession skips the sign-out after the token is minted.
	KeepSession bool
}

// FetchAccessToken signs in and mints one access token.
func FetchAccessToken(ctx context.Context, opts TokenOptions) (string, error) {
	if opts.Email == "" || opts.Password == "" {
		return "", fmt.Errorf("email and password are required")
	}

	client := authsdk.NewSDKClient(opts.IssuerURL)
	if opts.BasePath != "" {
		client.BasePath = opts.BasePath
	}

	if _, err := client.GetReadiness(ctx); err != nil {
		return "", fmt.Errorf("issuer readiness: %w", err)
	}

	session, _, err := client.SignIn(ctx, opts.Email, opts.Password)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}

	token, err := session.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}

	if !opts.KeepSession {
		// The token outlives the session; dropping it is best effort.
		_ = session.SignOut(ctx)
	}
	return token, nil
}
