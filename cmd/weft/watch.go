package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/internal/rules"
)

// newWatchCmd creates the "watch" subcommand for re-validating and
// rebuilding when watched files change.
func newWatchCmd() *cobra.Command {
	var (
		stackName    string
		validateOnly bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Re-validate and rebuild on file changes",
		Long: `Watch monitors directories for changes and re-runs validate and build.

The watch command:
- Monitors the given directories (default: current directory)
- Re-validates the stack on each .go or .zip change
- Rebuilds the template if validation passes (unless --validate-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    weft watch --stack hellosecret
    weft watch --stack hellosecret ./stacks -o template.json
    weft watch --stack hellosecret --validate-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			return runWatch(dirs, watchOptions{
				stackName:    stackName,
				validateOnly: validateOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().BoolVar(&validateOnly, "validate-only", false, "Only run validate, skip build")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	stackName    string
	validateOnly bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch monitors directories and runs validate/build on changes.
func runWatch(dirs []string, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := addDirRecursive(watcher, abs); err != nil {
			return fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		fmt.Printf("Watching: %s\n", abs)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Running initial validate/build...")
	runValidateAndBuild(opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Println("\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !watchedFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Printf("\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			runValidateAndBuild(opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Println("\nStopping watch...")
			return nil
		}
	}
}

// watchedFile reports whether a change to path should trigger a rebuild:
// stack sources and code artifacts.
func watchedFile(path string) bool {
	return strings.HasSuffix(path, ".go") || strings.HasSuffix(path, ".zip")
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			// Skip vendor directory
			if filepath.Base(path) == "vendor" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// runValidateAndBuild runs validate and optionally build on the stack.
func runValidateAndBuild(opts watchOptions) {
	stack, err := selectStack(opts.stackName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	g := graph.Build(stack)
	result := rules.Run(g, rules.Options{})

	for _, issue := range result.Issues {
		if issue.Resource != "" {
			fmt.Printf("  %s: %s: %s [%s]\n", issue.Severity, issue.Resource, issue.Message, issue.RuleID)
		} else {
			fmt.Printf("  %s: %s [%s]\n", issue.Severity, issue.Message, issue.RuleID)
		}
	}

	if !result.Success {
		fmt.Println("Validation failed, skipping build")
		return
	}

	fmt.Println("Validation passed")

	if opts.validateOnly {
		return
	}

	if err := runBuild(opts.stackName, opts.outputFormat, opts.outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Build error: %v\n", err)
		return
	}

	if opts.outputFile != "" {
		fmt.Printf("Build successful, wrote %s\n", opts.outputFile)
	}
}
