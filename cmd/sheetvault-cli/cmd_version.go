package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheetvault/sheetvault/client"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage workbook versions",
	}

	cmd.AddCommand(newVersionCreateCmd())
	cmd.AddCommand(newVersionGetCmd())
	cmd.AddCommand(newVersionListCmd())
	cmd.AddCommand(newVersionRevertCmd())

	return cmd
}

func newVersionCreateCmd() *cobra.Command {
	var (
		changesFile string
		authorID    string
		worksheetID string
	)

	cmd := &cobra.Command{
		Use:   "create <workbook-id>",
		Short: "Record a new version from a JSON changes file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(changesFile)
			if err != nil {
				return fmt.Errorf("reading changes file: %w", err)
			}

			var changes []client.ChangeInput
			if err := json.Unmarshal(data, &changes); err != nil {
				return fmt.Errorf("parsing changes file: %w", err)
			}

			v, err := apiClient.Versions.Create(cmd.Context(), args[0], client.CreateVersionRequest{
				WorksheetID: worksheetID,
				AuthorID:    authorID,
				Changes:     changes,
				Metadata:    map[string]any{"service": "sheetvault-cli"},
			})
			if err != nil {
				return err
			}

			return printResult(v)
		},
	}

	cmd.Flags().StringVarP(&changesFile, "changes", "c", "", "Path to a JSON array of changes (required)")
	cmd.Flags().StringVar(&authorID, "author", "", "Author id recorded on the version")
	cmd.Flags().StringVar(&worksheetID, "worksheet", "", "Optional worksheet scope")
	_ = cmd.MarkFlagRequired("changes")

	return cmd
}

func newVersionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <version-id>",
		Short: "Fetch a version with its full change list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := apiClient.Versions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(rec)
		},
	}
}

func newVersionListCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list <workbook-id>",
		Short: "List a workbook's versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Versions.List(cmd.Context(), args[0], page, pageSize)
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "Versions per page")

	return cmd
}

func newVersionRevertCmd() *cobra.Command {
	var authorID string

	cmd := &cobra.Command{
		Use:   "revert <version-id>",
		Short: "Create a new version reproducing the target version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := apiClient.Versions.Revert(cmd.Context(), args[0], authorID)
			if err != nil {
				return err
			}
			return printResult(v)
		},
	}

	cmd.Flags().StringVar(&authorID, "author", "", "Author id recorded on the revert version")

	return cmd
}
