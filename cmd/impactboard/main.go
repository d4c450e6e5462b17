// Package main implements the impactboard CLI: it ingests merged
// pull-request activity for one repository, scores each contributor with a
// fixed heuristic model, and renders a leaderboard with evidence.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	repoFlag        string
	topFlag         int
	includeBotsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "impactboard",
	Short: "Contributor impact leaderboard for a GitHub repository",
	Long: `impactboard ingests merged pull-request and review activity over a
trailing window, scores each contributor (delivery, reviews, leadership),
and renders a leaderboard backed by PR-level evidence.`,
	SilenceUsage: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ingest merged PR activity into the local database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, repo, err := splitRepo(repoFlag)
		if err != nil {
			return err
		}
		return fetchActivity(cmd.Context(), owner, repo)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score previously ingested activity and print the leaderboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return scoreActivity(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch and score in one pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, repo, err := splitRepo(repoFlag)
		if err != nil {
			return err
		}
		if err := fetchActivity(cmd.Context(), owner, repo); err != nil {
			return err
		}
		return scoreActivity(cmd.Context())
	},
}

// splitRepo parses an "owner/name" repository reference.
func splitRepo(ref string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.New(`--repo must be in "owner/name" form`)
	}
	return owner, repo, nil
}

func init() {
	rootCmd.PersistentFlags().IntVar(&topFlag, "top", 5, "number of leaderboard rows to print")
	rootCmd.PersistentFlags().BoolVar(&includeBotsFlag, "include-bots", false, "keep automation accounts in the leaderboard")

	for _, cmd := range []*cobra.Command{fetchCmd, runCmd} {
		cmd.Flags().StringVar(&repoFlag, "repo", "", `target repository as "owner/name"`)
		_ = cmd.MarkFlagRequired("repo")
	}

	rootCmd.AddCommand(fetchCmd, scoreCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
