package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// UploadRequest represents the document upload API request.
type UploadRequest struct {
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	FileType string         `json:"file_type,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UploadResponse represents the uploaded document.
type UploadResponse struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	ChunkCount     int    `json:"chunk_count"`
	ContentPreview string `json:"content_preview"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		tags    []string
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents",
		Long:  "Uploads one or more text files for indexing.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args, tags, filters, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tags to attach to the uploaded documents")
	cmd.Flags().StringSliceVarP(&filters, "meta", "m", nil, "Metadata as key=value pairs")

	return cmd
}

func runUpload(cmd *cobra.Command, paths, tags, filters []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	metadata, err := parseFilters(filters)
	if err != nil {
		return err
	}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		filename := filepath.Base(path)
		req := UploadRequest{
			Filename: filename,
			Content:  string(content),
			FileType: strings.TrimPrefix(filepath.Ext(filename), "."),
			Tags:     tags,
			Metadata: metadata,
		}

		resp, err := api.Post("/documents", req)
		if err != nil {
			return fmt.Errorf("upload of %s failed: %w", filename, err)
		}

		var doc UploadResponse
		if err := json.Unmarshal(resp.Data, &doc); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if outputJSON {
			output, _ := json.MarshalIndent(doc, "", "  ")
			fmt.Println(string(output))
		} else {
			fmt.Printf("Uploaded %s as %s (%d chunks)\n", filename, doc.ID, doc.ChunkCount)
		}
	}

	return nil
}
