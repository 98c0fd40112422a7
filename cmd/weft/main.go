// Command weft builds, validates, and applies declared AWS stacks.
//
// Usage:
//
//	weft build --stack hellosecret       Serialize the declared stack
//	weft validate --stack hellosecret    Check the stack's graph rules
//	weft apply --stack hellosecret       Converge live AWS state
//	weft version                         Show version
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/stacks/hellosecret"
)

// registry maps stack names to their declarations. Stacks are compiled in;
// adding one means adding its constructor here.
var registry = map[string]func() *weft.Stack{
	hellosecret.Name: hellosecret.Stack,
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Declare and apply AWS infrastructure from Go",
		Long: `weft declares small AWS stacks as typed Go values and converges live
state to them.

Resources are declared in a stack package:

    s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})

Then validated and applied:

    weft validate --stack hellosecret
    weft apply --stack hellosecret`,
	}

	rootCmd.AddCommand(
		newBuildCmd(),
		newValidateCmd(),
		newListCmd(),
		newGraphCmd(),
		newPlanCmd(),
		newApplyCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// selectStack resolves a --stack flag value against the registry. An empty
// name is accepted when exactly one stack is registered.
func selectStack(name string) (*weft.Stack, error) {
	if name == "" && len(registry) == 1 {
		for _, build := range registry {
			return build(), nil
		}
	}

	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown stack %q (available: %v)", name, stackNames())
	}
	return build(), nil
}

func stackNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// addStackFlag registers the shared --stack flag on a subcommand.
func addStackFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "stack", "s", "", "Stack to operate on")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("weft %s\n", getVersion())
		},
	}
}
