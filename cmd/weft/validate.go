package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/internal/rules"
)

// newValidateCmd creates the "validate" subcommand for checking graph rules.
func newValidateCmd() *cobra.Command {
	var (
		stackName    string
		outputFormat string
		enabledRules []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stack's graph rules",
		Long: `Validate builds the stack's dependency graph and checks every rule:
reference validity, acyclicity, least-privilege scoping, deployment
staleness, and enum values.

Examples:
    weft validate --stack hellosecret
    weft validate --stack hellosecret --format json
    weft validate --stack hellosecret --rules WFT001,WFT002`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(stackName, outputFormat, enabledRules)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&enabledRules, "rules", nil, "Rule IDs to run (default: all)")

	return cmd
}

func runValidate(stackName, format string, enabledRules []string) error {
	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	g := graph.Build(stack)
	result := rules.Run(g, rules.Options{EnabledRules: enabledRules})

	validateResult := weft.ValidateResult{
		Success:   result.Success,
		Resources: stack.Len(),
		Issues:    result.Issues,
	}

	return outputValidateResult(validateResult, format)
}

func outputValidateResult(result weft.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if result.Success && len(result.Issues) == 0 {
			fmt.Printf("Validation passed: %d resources OK\n", result.Resources)
			return nil
		}

		if !result.Success {
			fmt.Println("Validation FAILED:")
		}
		for _, issue := range result.Issues {
			if issue.Resource != "" {
				fmt.Printf("  %s: %s: %s [%s]\n", issue.Severity, issue.Resource, issue.Message, issue.RuleID)
			} else {
				fmt.Printf("  %s: %s [%s]\n", issue.Severity, issue.Message, issue.RuleID)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		os.Exit(1)
	}

	return nil
}
