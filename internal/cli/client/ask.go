package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the query API request.
type AskRequest struct {
	Query          string         `json:"query"`
	Model          string         `json:"model,omitempty"`
	Temperature    *float32       `json:"temperature,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}

// AskScoreDetail represents one scored chunk in the response.
type AskScoreDetail struct {
	Source         string  `json:"source"`
	ContentPreview string  `json:"content_preview"`
	Score          float32 `json:"score"`
}

// AskResponse represents the query API response.
type AskResponse struct {
	Answer            string           `json:"answer"`
	Success           bool             `json:"success"`
	Sources           []string         `json:"sources"`
	SimilarityScores  []AskScoreDetail `json:"similarity_scores,omitempty"`
	ChunksRetrieved   int              `json:"chunks_retrieved"`
	ModelUsed         string           `json:"model_used,omitempty"`
	ProcessingSeconds float64          `json:"processing_seconds"`
	Error             string           `json:"error,omitempty"`
	ErrorCode         string           `json:"error_code,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		model       string
		temperature float32
		tags        []string
		filters     []string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Answers a question using the indexed documents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			var temp *float32
			if cmd.Flags().Changed("temperature") {
				temp = &temperature
			}
			return runAsk(cmd, args[0], model, temp, tags, filters, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use for this query")
	cmd.Flags().Float32Var(&temperature, "temperature", 0, "Sampling temperature for this query")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Restrict retrieval to chunks with any of these tags")
	cmd.Flags().StringSliceVarP(&filters, "filter", "f", nil, "Metadata filter as key=value (all must match)")

	return cmd
}

func runAsk(cmd *cobra.Command, question, model string, temperature *float32, tags, filters []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	metadata, err := parseFilters(filters)
	if err != nil {
		return err
	}

	req := AskRequest{
		Query:          question,
		Model:          model,
		Temperature:    temperature,
		Tags:           tags,
		MetadataFilter: metadata,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)

	if !askResp.Success && askResp.ErrorCode != "" {
		fmt.Printf("\n(%s: %s)\n", askResp.ErrorCode, askResp.Error)
	}
	if len(askResp.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(askResp.Sources, ", "))
	}
	if len(askResp.SimilarityScores) > 0 {
		fmt.Println("\nSimilarity scores:")
		for _, detail := range askResp.SimilarityScores {
			fmt.Printf("  %.3f  %s\n", detail.Score, detail.Source)
		}
	}
	if askResp.ModelUsed != "" {
		fmt.Printf("\nModel: %s (%.2fs)\n", askResp.ModelUsed, askResp.ProcessingSeconds)
	}

	return nil
}

// parseFilters converts key=value pairs into a metadata filter map.
func parseFilters(filters []string) (map[string]any, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	metadata := make(map[string]any, len(filters))
	for _, f := range filters {
		key, value, found := strings.Cut(f, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", f)
		}
		metadata[key] = value
	}
	return metadata, nil
}
