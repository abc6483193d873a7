// chainaudit runs the dataflow analysis engine of internal/ir/internal/interp
// over a GitHub Actions workflow file, and separately resolves a PURL +
// version to the commit that produced it via internal/commitfinder.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/collab"
	"github.com/chainaudit/chainaudit/internal/commitfinder"
	"github.com/chainaudit/chainaudit/internal/config"
	"github.com/chainaudit/chainaudit/internal/interp"
	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/parsesvc"
)

var (
	workflowPath string
	purl         string
	repoPath     string
	commitOpt    string
	policyPath   string
	format       string
	verbose      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chainaudit",
	Short: "Trace dataflow through CI build scripts and locate the commit behind a dependency version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build IR for a workflow file and run the abstract interpreter over it",
	RunE:  runAnalyze,
}

var findCommitCmd = &cobra.Command{
	Use:   "find-commit",
	Short: "Resolve a package URL and version to the commit that produced it",
	RunE:  runFindCommit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	analyzeCmd.Flags().StringVar(&workflowPath, "workflow", "", "path to a GitHub Actions workflow YAML file (required)")
	analyzeCmd.Flags().StringVar(&repoPath, "repo", ".", "path to the checked-out repository the workflow belongs to")
	analyzeCmd.Flags().StringVar(&policyPath, "policy", "", "path to a policy YAML file naming which checks to run")
	analyzeCmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	analyzeCmd.MarkFlagRequired("workflow")

	findCommitCmd.Flags().StringVar(&purl, "purl", "", "package URL to resolve, e.g. pkg:npm/left-pad@1.3.0 (required)")
	findCommitCmd.Flags().StringVar(&repoPath, "repo", "", "path to a local checkout of the package's repository (required)")
	findCommitCmd.Flags().StringVar(&commitOpt, "commit", "", "version override; defaults to the purl's own version qualifier")
	findCommitCmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	findCommitCmd.MarkFlagRequired("purl")
	findCommitCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(analyzeCmd, findCommitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if policyPath != "" {
		pol, err := config.Load(policyPath)
		if err != nil {
			return err
		}
		logger.Debug("loaded policy", zap.Strings("enabled_checks", pol.Enabled()))
	}

	data, err := os.ReadFile(workflowPath)
	if err != nil {
		return fmt.Errorf("reading workflow file %q: %w", workflowPath, err)
	}
	var wf astx.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return fmt.Errorf("parsing workflow file %q: %w", workflowPath, err)
	}

	bashCache := parsesvc.NewCache(&parsesvc.ExecBashParser{})
	builder := ir.NewBuilder(repoPath, func(relPath string) (*astx.File, error) {
		src, err := os.ReadFile(filepath.Join(repoPath, relPath))
		if err != nil {
			return nil, err
		}
		return bashCache.Parse(ctx, string(src))
	})

	if _, err := builder.BuildWorkflow(&wf); err != nil {
		return fmt.Errorf("building IR for %q: %w", workflowPath, err)
	}

	it := interp.New(builder.Arena)
	before := it.Run(builder.Graph)

	logger.Debug("traversal complete", zap.Int("node_count", len(before)))

	type nodeSummary struct {
		Locations int `json:"locations"`
		Values    int `json:"values"`
	}
	summary := make(map[string]nodeSummary, len(before))
	for id, state := range before {
		summary[id.String()] = nodeSummary{Locations: len(state.Locations()), Values: state.Size()}
	}

	if format == "json" {
		return printJSON(summary)
	}
	for id, s := range summary {
		fmt.Printf("node %s: %d locations, %d values\n", id, s.Locations, s.Values)
	}
	return nil
}

func runFindCommit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo, err := collab.OpenRepository(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository %q: %w", repoPath, err)
	}
	registry := collab.NewHTTPRegistryClient("https://deps.dev")

	result := commitfinder.Find(ctx, purl, commitOpt, repo, registry)
	logger.Debug("commit finder result", zap.String("outcome", string(result.Outcome)), zap.String("commit", result.CommitSHA))

	if format == "json" {
		return printJSON(result)
	}
	if result.CommitSHA != "" {
		fmt.Println(result.CommitSHA)
	}
	fmt.Fprintln(os.Stderr, result.Outcome)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
