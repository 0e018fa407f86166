package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/config"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze one or more financial documents",
	Long: `Analyze one or more financial documents.

A single file is analyzed synchronously and the report is printed.
Multiple files are queued as a batch; use "finsight analyses list"
to check their progress.

Examples:
  finsight analyze report.pdf
  finsight analyze report.pdf --query "How risky is this company?"
  finsight analyze q1.pdf q2.pdf q3.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			resp, err := client.postFiles(cmd.Context(), "/analyze", "file", args, query)
			if err != nil {
				return err
			}

			var result struct {
				AnalysisID    string `json:"analysis_id"`
				Analysis      string `json:"analysis"`
				FileProcessed string `json:"file_processed"`
				DurationMs    int64  `json:"duration_ms"`
			}
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}

			printSuccess("Analyzed %s in %dms (analysis %s)", result.FileProcessed, result.DurationMs, result.AnalysisID)
			fmt.Println(result.Analysis)
			return nil
		}

		resp, err := client.postFiles(cmd.Context(), "/analyze/batch", "files", args, query)
		if err != nil {
			return err
		}

		var result struct {
			Items []struct {
				AnalysisID string `json:"analysis_id"`
				Filename   string `json:"filename"`
				Status     string `json:"status"`
				Error      string `json:"error"`
			} `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, item := range result.Items {
			if item.Status == "queued" {
				printSuccess("Queued %s as analysis %s", item.Filename, item.AnalysisID)
			} else {
				printError("Rejected %s: %s", item.Filename, item.Error)
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("query", "", "what to look for in the documents")
}

// --- analyses ---

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Manage stored analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/analyses?limit=%d", limit))
		if err != nil {
			return err
		}

		var analyses []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Filename  string `json:"filename"`
			Query     string `json:"query"`
			Status    string `json:"status"`
		}
		if err := decodeJSON(resp, &analyses); err != nil {
			return err
		}

		if len(analyses) == 0 {
			fmt.Println("No analyses found.")
			return nil
		}

		for _, a := range analyses {
			query := a.Query
			if len(query) > 60 {
				query = query[:60] + "..."
			}
			fmt.Printf("%s  %-9s  %s  %s\n",
				colorize(colorCyan, a.ID[:8]),
				a.Status,
				a.Filename,
				query,
			)
		}
		return nil
	},
}

var analysesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/analyses/"+args[0])
		if err != nil {
			return err
		}

		var analysis any
		if err := decodeJSON(resp, &analysis); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/analyses/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted analysis %s", args[0])
		return nil
	},
}

func init() {
	analysesListCmd.Flags().Int("limit", 20, "maximum number of analyses to list")
	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	analysesCmd.AddCommand(analysesDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			if strings.Contains(err.Error(), "unknown config key") {
				return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
