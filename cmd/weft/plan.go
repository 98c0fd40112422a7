package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftline/weft/internal/differ"
	"github.com/weftline/weft/internal/template"
)

func newPlanCmd() *cobra.Command {
	var (
		stackName    string
		againstFile  string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compare the declared stack against a built template",
		Long: `Plan builds the stack and compares it against a previously built
template file, reporting added, removed, and modified resources.

A stack that has not changed since the template was built reports zero
changes.

Examples:
    weft plan --stack hellosecret --against template.json
    weft plan --stack hellosecret --against template.json --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(stackName, againstFile, outputFormat)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVar(&againstFile, "against", "", "Previously built template file (required)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("against")

	return cmd
}

func runPlan(stackName, againstFile, format string) error {
	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	oldTmpl, err := differ.LoadTemplate(againstFile)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", againstFile, err)
	}

	newTmpl, err := template.Build(stack)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	result := differ.Compare(oldTmpl, newTmpl)
	return outputPlanResult(result, format)
}

func outputPlanResult(result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if result.Total() == 0 {
			fmt.Println("No changes.")
			return nil
		}

		for _, e := range result.Added {
			fmt.Printf("  + %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Removed {
			fmt.Printf("  - %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Modified {
			fmt.Printf("  ~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Printf("      %s\n", c.Path)
			}
		}
		fmt.Printf("\n%d resources changed\n", result.Total())

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if result.Total() > 0 {
		os.Exit(2)
	}
	return nil
}
