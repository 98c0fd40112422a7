package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	weft "github.com/weftline/weft"
)

func newListCmd() *cobra.Command {
	var (
		stackName    string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stack's declared resources",
		Long: `List displays every resource declared in the stack, in declaration
order.

Examples:
    weft list --stack hellosecret
    weft list --stack hellosecret --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(stackName, outputFormat)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(stackName, format string) error {
	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	listResult := weft.ListResult{
		Resources: make([]weft.ListResource, 0, stack.Len()),
	}

	for _, name := range stack.Names() {
		res, _ := stack.Get(name)
		listResult.Resources = append(listResult.Resources, weft.ListResource{
			Name: name,
			Type: res.ResourceType(),
		})
	}

	return outputListResult(listResult, format)
}

func outputListResult(result weft.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Println("No resources declared.")
			return nil
		}

		fmt.Printf("Declared resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Printf("  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
