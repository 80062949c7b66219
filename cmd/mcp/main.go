// Command mcp exposes the resource API as MCP tools over streamable HTTP or
// stdio.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/app"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP tool proxy for the resource API",
		Long: `mcp exposes the resource API endpoints as MCP tools.

Configuration comes from the environment (RESOURCE_BASE_URL is required).
Tools that need a credential use the bearer presented at initialize, or
MCP_AUTH_JWT when the client sent none.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(httpCmd(), stdioCmd(), versionCmd())
	return cmd
}

func httpCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve streamable HTTP on /mcp",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			application, err := app.New(cfg, os.Stdout)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.RunHTTP(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: MCP_SERVER_PORT)")
	return cmd
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve newline-delimited JSON-RPC on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			// stdout carries protocol messages.
			application, err := app.New(cfg, os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.RunStdio(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcp version %s\n", app.BuildVersion)
		},
	}
}
