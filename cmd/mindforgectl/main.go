package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addrFlag  string
	tokenFlag string

	rootCmd = &cobra.Command{
		Use:   "mindforgectl",
		Short: "CLI client for the MindForge HTTP API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "http://localhost:8080", "MindForge base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "Bearer token (omit when auth is disabled)")

	sendCmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message through the session pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(newClient(), strings.Join(args, " "), os.Stdout)
		},
	}
	rootCmd.AddCommand(sendCmd)

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search knowledge graph nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeType, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			return runSearch(newClient(), args[0], nodeType, limit, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("type", "T", "", "Filter by node type")
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum results")
	rootCmd.AddCommand(searchCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge graph statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(newClient(), os.Stdout)
		},
	}
	rootCmd.AddCommand(statsCmd)

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			return runSessions(newClient(), status, os.Stdout)
		},
	}
	sessionsCmd.Flags().StringP("status", "s", "", "Filter by status (active, paused, completed)")
	rootCmd.AddCommand(sessionsCmd)

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict stale low-weight nodes from the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxAge, _ := cmd.Flags().GetString("max-age")
			return runCleanup(newClient(), maxAge, os.Stdout)
		},
	}
	cleanupCmd.Flags().String("max-age", "720h", "Evict nodes older than this duration")
	rootCmd.AddCommand(cleanupCmd)

	hashPasswordCmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Generate the bcrypt hash for MINDFORGE_AUTH_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHashPassword(args, os.Stdin, os.Stdout)
		},
	}
	rootCmd.AddCommand(hashPasswordCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
