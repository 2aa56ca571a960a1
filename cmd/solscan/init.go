package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/solscan/internal/config"
)

// initChoices holds the answers of the interactive setup
type initChoices struct {
	projectType  config.ProjectType
	strictness   config.Strictness
	outputFormat string
	configPath   string
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a solscan configuration file",
		Long: `Generate a documented solscan configuration file with sensible defaults.

By default, creates solscan.yaml in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Examples:
  # Create solscan.yaml in current directory
  solscan init

  # Custom output path
  solscan init --config custom.yaml

  # Overwrite existing file
  solscan init --force

  # Generate smaller config with essential options only
  solscan init --minimal

  # Interactive setup wizard
  solscan init --interactive
  solscan init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", "solscan.yaml",
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")

	choices := initChoices{
		projectType:  config.ProjectTypeGeneric,
		strictness:   config.StrictnessStandard,
		outputFormat: "text",
		configPath:   configPath,
	}

	if interactive {
		var err error
		choices, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}
	configPath = choices.configPath

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.RenderConfigTemplate(choices.projectType, choices.strictness, choices.outputFormat)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'solscan analyze .' to scan your contracts.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (initChoices, error) {
	fmt.Println()
	fmt.Println("solscan Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()

	projectTypes := []struct {
		Label string
		Value config.ProjectType
	}{
		{"Generic Solidity project", config.ProjectTypeGeneric},
		{"Foundry", config.ProjectTypeFoundry},
		{"Hardhat", config.ProjectTypeHardhat},
		{"Truffle", config.ProjectTypeTruffle},
	}

	projectPrompt := promptui.Select{
		Label: "Which toolchain does this project use?",
		Items: projectTypes,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "\U0001F449 {{ .Label | cyan }}",
			Inactive: "   {{ .Label | white }}",
			Selected: "\U00002705 {{ .Label | green }}",
		},
	}
	projectIdx, _, err := projectPrompt.Run()
	if err != nil {
		return initChoices{}, fmt.Errorf("project selection cancelled: %w", err)
	}

	fmt.Println()

	strictnessLevels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", "Fail on CRITICAL findings or risk >= 30", config.StrictnessStandard},
		{"Relaxed", "Fail on CRITICAL findings or risk >= 50", config.StrictnessRelaxed},
		{"Strict", "Fail on HIGH findings or risk >= 10", config.StrictnessStrict},
	}

	strictnessPrompt := promptui.Select{
		Label: "How strict should the security gate be?",
		Items: strictnessLevels,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
			Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
			Selected: "\U00002705 {{ .Label | green }}",
		},
	}
	strictnessIdx, _, err := strictnessPrompt.Run()
	if err != nil {
		return initChoices{}, fmt.Errorf("strictness selection cancelled: %w", err)
	}

	fmt.Println()

	formatPrompt := promptui.Select{
		Label: "Default report format",
		Items: []string{"text", "json", "yaml", "csv", "sarif"},
	}
	_, outputFormat, err := formatPrompt.Run()
	if err != nil {
		return initChoices{}, fmt.Errorf("format selection cancelled: %w", err)
	}

	fmt.Println()

	pathPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}
	configPath, err := pathPrompt.Run()
	if err != nil {
		return initChoices{}, fmt.Errorf("output path input cancelled: %w", err)
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	fmt.Println()

	return initChoices{
		projectType:  projectTypes[projectIdx].Value,
		strictness:   strictnessLevels[strictnessIdx].Value,
		outputFormat: outputFormat,
		configPath:   configPath,
	}, nil
}
