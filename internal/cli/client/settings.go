package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// InstructionSettings mirrors the server-side settings object. Updates
// replace the whole object, so set fetches current values first and
// applies only the changed flags.
type InstructionSettings struct {
	SystemInstruction    string  `json:"system_instruction"`
	ResponseLength       string  `json:"response_length"`
	ShowSimilarityScores bool    `json:"show_similarity_scores"`
	MaxChunks            int     `json:"max_chunks"`
	SimilarityThreshold  float64 `json:"similarity_threshold"`
}

// SettingsCmd creates the settings command group.
func SettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage instruction settings",
		Long:  "Show and update the response-shaping settings applied to every query.",
	}

	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsSetCmd())

	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSettingsShow(cmd, outputJSON)
		},
	}
}

func runSettingsShow(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	settings, err := fetchSettings(api)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(settings, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printSettings(settings)
	return nil
}

func settingsSetCmd() *cobra.Command {
	var (
		instruction string
		length      string
		showScores  bool
		maxChunks   int
		threshold   float64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSettingsSet(cmd, settingsPatch{
				instruction: flagValue(cmd, "instruction", instruction),
				length:      flagValue(cmd, "length", length),
				showScores:  boolFlagValue(cmd, "show-scores", showScores),
				maxChunks:   intFlagValue(cmd, "max-chunks", maxChunks),
				threshold:   floatFlagValue(cmd, "threshold", threshold),
			}, outputJSON)
		},
	}

	cmd.Flags().StringVar(&instruction, "instruction", "", "System instruction prepended to every prompt")
	cmd.Flags().StringVar(&length, "length", "", "Response length (short|medium|long|detailed)")
	cmd.Flags().BoolVar(&showScores, "show-scores", false, "Include similarity scores in results")
	cmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "Maximum chunks used per query")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity score (0..1)")

	return cmd
}

type settingsPatch struct {
	instruction *string
	length      *string
	showScores  *bool
	maxChunks   *int
	threshold   *float64
}

func runSettingsSet(cmd *cobra.Command, patch settingsPatch, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	settings, err := fetchSettings(api)
	if err != nil {
		return err
	}

	if patch.instruction != nil {
		settings.SystemInstruction = *patch.instruction
	}
	if patch.length != nil {
		settings.ResponseLength = *patch.length
	}
	if patch.showScores != nil {
		settings.ShowSimilarityScores = *patch.showScores
	}
	if patch.maxChunks != nil {
		settings.MaxChunks = *patch.maxChunks
	}
	if patch.threshold != nil {
		settings.SimilarityThreshold = *patch.threshold
	}

	resp, err := api.Put("/settings/instructions", settings)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	var updated InstructionSettings
	if err := json.Unmarshal(resp.Data, &updated); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(updated, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println("Settings updated.")
	printSettings(&updated)
	return nil
}

func fetchSettings(api *APIClient) (*InstructionSettings, error) {
	resp, err := api.Get("/settings/instructions")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	var settings InstructionSettings
	if err := json.Unmarshal(resp.Data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &settings, nil
}

func printSettings(s *InstructionSettings) {
	fmt.Printf("Response length:      %s\n", s.ResponseLength)
	fmt.Printf("Max chunks:           %d\n", s.MaxChunks)
	fmt.Printf("Similarity threshold: %.2f\n", s.SimilarityThreshold)
	fmt.Printf("Show scores:          %t\n", s.ShowSimilarityScores)
	if s.SystemInstruction != "" {
		fmt.Printf("Instruction:          %s\n", s.SystemInstruction)
	}
}

func flagValue(cmd *cobra.Command, name, value string) *string {
	if cmd.Flags().Changed(name) {
		return &value
	}
	return nil
}

func boolFlagValue(cmd *cobra.Command, name string, value bool) *bool {
	if cmd.Flags().Changed(name) {
		return &value
	}
	return nil
}

func intFlagValue(cmd *cobra.Command, name string, value int) *int {
	if cmd.Flags().Changed(name) {
		return &value
	}
	return nil
}

func floatFlagValue(cmd *cobra.Command, name string, value float64) *float64 {
	if cmd.Flags().Changed(name) {
		return &value
	}
	return nil
}
