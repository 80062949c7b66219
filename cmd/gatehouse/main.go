// Command gatehouse holds developer utilities for the issuer, resource API
// and MCP proxy.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/cli"
	"github.com/spf13/cobra"
)

// Version is overridden at build time via -ldflags.
var Version = "v0.1.0"

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gatehouse",
		Short:        "Developer tools for the gatehouse services",
		SilenceUsage: true,
	}

	cmd.AddCommand(envCmd(), tokenCmd(), statusCmd(), versionCmd())
	return cmd
}

func envCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Write .env files for every service",
		Long: `Write auth.env, resource.env and mcp.env into the target directory.

Existing files are skipped unless --force is given. auth.env gets a freshly
generated AUTH_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := cli.WriteEnvFiles(dir, force)
			for _, r := range results {
				if r.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "skipped %s (already exists)\n", r.Path)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", r.Path)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the files to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		opts    cli.TokenOptions
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign in and print an access token",
		Long: `Sign in to the issuer and print one access token, e.g. for MCP_AUTH_JWT.

The password may also come from GATEHOUSE_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				opts.Password = os.Getenv("GATEHOUSE_PASSWORD")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			token, err := cli.FetchAccessToken(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.IssuerURL, "issuer", "http://localhost:3000", "Issuer origin")
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "Account route prefix (default /api/auth/v1)")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "Account password")
	cmd.Flags().BoolVar(&opts.KeepSession, "keep-session", false, "Do not sign out after minting the token")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall request timeout")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func statusCmd() *cobra.Command {
	var (
		issuer  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the issuer's health and published keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			st, err := cli.CheckIssuer(ctx, issuer)
			if err != nil {
				return err
			}
			st.Write(cmd.OutOrStdout())
			if !st.Ready {
				return fmt.Errorf("issuer at %s is not ready", issuer)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "http://localhost:3000", "Issuer origin")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall request timeout")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatehouse version %s\n", Version)
		},
	}
}
