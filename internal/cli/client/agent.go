package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AgentInitRequest represents the agent initialize API request.
type AgentInitRequest struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

// AgentStateResponse represents the agent state after an operation.
type AgentStateResponse struct {
	AgentReady bool `json:"agent_ready"`
}

// AgentCmd creates the agent command group.
func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the agent",
		Long:  "Initialize the tool-using agent and manage its conversation memory.",
	}

	cmd.AddCommand(agentInitCmd())
	cmd.AddCommand(agentClearCmd())

	return cmd
}

func agentInitCmd() *cobra.Command {
	var (
		model       string
		temperature float32
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			var temp *float32
			if cmd.Flags().Changed("temperature") {
				temp = &temperature
			}
			return runAgentInit(cmd, model, temp)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model the agent should use")
	cmd.Flags().Float32Var(&temperature, "temperature", 0, "Sampling temperature for the agent")

	return cmd
}

func runAgentInit(cmd *cobra.Command, model string, temperature *float32) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/agent/initialize", AgentInitRequest{
		Model:       model,
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	var state AgentStateResponse
	if err := json.Unmarshal(resp.Data, &state); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Agent ready: %t\n", state.AgentReady)
	return nil
}

func agentClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear agent conversation memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentClear(cmd)
		},
	}
}

func runAgentClear(cmd *cobra.Command) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Post("/agent/clear", nil); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	fmt.Println("Agent memory cleared.")
	return nil
}
