package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/docs"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", serviceName, version)
			fmt.Fprintf(out, "  commit:   %s\n", commit)
			fmt.Fprintf(out, "  built by: %s\n", builtBy)
		},
	}
}

// docsCmd gives offline access to the Logs Insights query documentation.
func docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Browse the Logs Insights query syntax documentation",
	}

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search commands and functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := docs.New(version)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return printJSON(cmd.OutOrStdout(), lib.Search(args[0], limit))
		},
	}
	search.Flags().Int("limit", 10, "maximum number of matches, 0 for all")

	command := &cobra.Command{
		Use:   "command <name>",
		Short: "Show the documentation of one command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := docs.New(version)
			if err != nil {
				return err
			}
			doc, err := lib.Command(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(lib.CommandNames(), ", "))
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}

	validate := &cobra.Command{
		Use:   "validate <query>",
		Short: "Check a query for common mistakes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := docs.New(version)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lib.ValidateQuery(args[0]))
		},
	}

	cmd.AddCommand(search, command, validate)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
