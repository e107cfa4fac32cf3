package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"diffscope/internal/gitops"
	"diffscope/internal/llm"
	"diffscope/internal/oracle"
	"diffscope/internal/review"
	"diffscope/pkg/config"
	"diffscope/pkg/spinner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "diffscope",
		Short: "Iterative impact analysis for code changes",
		Long: `diffscope analyzes a diff for ripple effects across the codebase:
it indexes the changed files, partitions large changes into reviewable
units, and iteratively gathers usage evidence until a verdict emerges.`,
		SilenceUsage: true,
	}
	root.AddCommand(newReviewCmd())
	return root
}

func newReviewCmd() *cobra.Command {
	var (
		cfgPath string
		repo    string
		source  string
		target  string
		staged  bool
		output  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a branch diff or the staged changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if repo != "" {
				cfg.RepoPath = repo
			}

			git, err := gitops.New(cfg.RepoPath)
			if err != nil {
				return err
			}

			if err := llm.ValidateModel(cfg.LLM.Model); err != nil {
				return err
			}
			llm.WarnIfUnapproved(cfg.LLM.Model)

			provider, err := llm.NewProvider(llm.ProviderConfig{
				Type:    llm.ProviderType(cfg.LLM.Provider),
				Model:   cfg.LLM.Model,
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
			})
			if err != nil {
				return err
			}

			decider := oracle.NewLLMOracle(provider, cfg.LLM.Retries, slog.Default())
			reviewer, err := review.New(cfg, git, decider, slog.Default())
			if err != nil {
				return err
			}

			spin := spinner.New(fmt.Sprintf("Analyzing changes with %s...", provider.GetModel()))
			spin.Start()

			var report *review.Report
			if staged {
				report, err = reviewer.ReviewStaged(cmd.Context())
			} else {
				report, err = reviewer.ReviewBranches(cmd.Context(), source, target)
			}
			spin.Stop()
			if err != nil {
				return err
			}

			rendered := report.Markdown()
			if output != "" {
				if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Printf("Report written to %s\n", output)
			} else {
				fmt.Print(rendered)
			}

			if report.HasCriticalIssues() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&repo, "repo", "", "repository path (default from config)")
	cmd.Flags().StringVar(&source, "source", "HEAD", "source branch or ref")
	cmd.Flags().StringVar(&target, "target", "main", "target branch or ref")
	cmd.Flags().BoolVar(&staged, "staged", false, "review staged changes instead of a branch diff")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
