package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StatusResponse represents the service status response.
type StatusResponse struct {
	Status           string `json:"status"`
	DocumentCount    int    `json:"document_count"`
	ChunkCount       int    `json:"chunk_count"`
	AgentReady       bool   `json:"agent_ready"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Degraded         bool   `json:"degraded"`
	Model            string `json:"model"`
	Version          string `json:"version"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStatus(cmd, outputJSON)
		},
	}
}

func runStatus(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/status")
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Documents: %d (%d chunks)\n", status.DocumentCount, status.ChunkCount)
	fmt.Printf("Model:     %s\n", status.Model)
	fmt.Printf("Agent:     %t\n", status.AgentReady)
	fmt.Printf("Version:   %s\n", status.Version)
	if status.Degraded {
		fmt.Println("Warning: running in degraded mode (keyword fallback index)")
	}
	if !status.APIKeyConfigured {
		fmt.Println("Warning: no model API key configured, generation is disabled")
	}

	return nil
}

// ModelsCmd creates the models command.
func ModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runModels(cmd, outputJSON)
		},
	}
}

func runModels(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/models")
	if err != nil {
		return fmt.Errorf("models failed: %w", err)
	}

	var catalog struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(resp.Data, &catalog); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(catalog, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(strings.Join(catalog.Models, "\n"))
	return nil
}
