package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/template"
)

func newBuildCmd() *cobra.Command {
	var (
		stackName    string
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Serialize the declared stack to a template",
		Long: `Build serializes the stack's resources, in dependency order, into a
template document.

Examples:
    weft build --stack hellosecret
    weft build --stack hellosecret -o template.json
    weft build --stack hellosecret --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(stackName, outputFormat, outputFile)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(stackName, format, outputFile string) error {
	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	tmpl, err := template.Build(stack)
	if err != nil {
		result := weft.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		}
		return outputBuildResult(result, format, outputFile)
	}

	result := weft.BuildResult{
		Success:   true,
		Template:  *tmpl,
		Resources: stack.Names(),
	}
	return outputBuildResult(result, format, outputFile)
}

func outputBuildResult(result weft.BuildResult, format, outputFile string) error {
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("build failed")
	}

	var data []byte
	var err error

	switch format {
	case "json":
		data, err = template.ToJSON(&result.Template)
	case "yaml":
		data, err = template.ToYAML(&result.Template)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}

	return os.WriteFile(outputFile, data, 0644)
}
