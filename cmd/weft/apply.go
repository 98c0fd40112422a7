package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/engine"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/internal/rules"
)

func newApplyCmd() *cobra.Command {
	var (
		stackName string
		region    string
		profile   string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge live AWS state to the declared stack",
		Long: `Apply validates the stack, then reconciles each resource against live
AWS state in dependency order. Resources that already match the
declaration are left untouched; re-applying a converged stack changes
nothing.

Examples:
    weft apply --stack hellosecret
    weft apply --stack hellosecret --region us-east-1
    weft apply --stack hellosecret --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(stackName, region, profile, dryRun)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from environment)")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS shared-config profile")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the apply order without calling AWS")

	return cmd
}

func runApply(stackName, region, profile string, dryRun bool) error {
	log.SetHandler(cli.Default)

	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	if dryRun {
		return printApplyOrder(stack)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := engine.NewClient(ctx, engine.Options{
		Region:  region,
		Profile: profile,
	})
	if err != nil {
		return err
	}

	report, err := engine.New(client).Apply(ctx, stack)
	if err != nil {
		return err
	}

	created, updated, unchanged := report.Counts()
	fmt.Printf("\nApply complete: %d created, %d updated, %d unchanged\n", created, updated, unchanged)

	for name, value := range report.Outputs {
		fmt.Printf("  %s = %s\n", name, value)
	}

	return nil
}

// printApplyOrder validates the stack and prints the order apply would use.
func printApplyOrder(stack *weft.Stack) error {
	g := graph.Build(stack)

	if result := rules.Run(g, rules.Options{}); !result.Success {
		for _, issue := range result.Issues {
			fmt.Fprintf(os.Stderr, "  %s: %s: %s [%s]\n",
				issue.Severity, issue.Resource, issue.Message, issue.RuleID)
		}
		return fmt.Errorf("stack %q failed validation", stack.Name())
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return err
	}

	fmt.Printf("Apply order (%d resources):\n\n", len(order))
	for i, name := range order {
		node := g.Node(name)
		fmt.Printf("  %2d. %s (%s)\n", i+1, name, node.Resource.ResourceType())
	}
	return nil
}
