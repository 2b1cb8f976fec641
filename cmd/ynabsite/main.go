package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/ynabsite/pkg/build"
	"github.com/yurifrl/ynabsite/pkg/config"
	"github.com/yurifrl/ynabsite/pkg/models"
	"github.com/yurifrl/ynabsite/pkg/site"
	"github.com/yurifrl/ynabsite/pkg/ynab"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ynabsite",
	Short: "Build a static site from YNAB budget data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch budget data and regenerate the site",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newLogger()
		if code := runBuild(cmd, logger); code != build.ExitOK {
			os.Exit(code)
		}
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch the snapshot and print a summary without writing the site",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		fetcher, err := newFetcher(cfg, logger)
		if err != nil {
			return err
		}
		snap, err := fetcher.FetchSnapshot(cmd.Context(), cfg.BudgetID)
		if err != nil {
			return err
		}

		headerStyle := lipgloss.NewStyle().Bold(true)
		warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

		fmt.Println(headerStyle.Render(fmt.Sprintf("Budget %s as of %s", snap.BudgetID, snap.AsOf.Format("2006-01-02"))))
		for _, a := range snap.Accounts {
			fmt.Printf("  %-30s %s\n", a.Name, a.Balance)
		}
		fmt.Printf("%d transactions across %d month(s)\n", len(snap.Transactions), len(snap.Months()))
		for _, issue := range snap.Verify() {
			fmt.Println(warnStyle.Render("! " + issue.String()))
		}

		if dump, _ := cmd.Flags().GetBool("dump"); dump {
			pp.Println(snap)
		}
		return nil
	},
}

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "ynabsite",
	})
}

func runBuild(cmd *cobra.Command, logger *log.Logger) int {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		logger.Error("configuration failed", "err", err)
		return build.ExitCode(err)
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		logger.Error("credential check failed", "err", err)
		return build.ExitCode(err)
	}

	manifest, err := site.LoadManifest(cfg.SiteFile)
	if err != nil {
		logger.Error("site manifest failed", "err", err)
		return build.ExitRender
	}

	builder := build.New(cfg, fetcher, site.New(manifest, logger), logger)
	if err := builder.Run(cmd.Context()); err != nil {
		logger.Error("build failed", "err", err)
		return build.ExitCode(err)
	}
	return build.ExitOK
}

func newFetcher(cfg *config.Config, logger *log.Logger) (build.Fetcher, error) {
	if cfg.SnapshotFile != "" {
		path := cfg.SnapshotFile
		logger.Info("reading budget data from file", "path", path)
		return build.FetcherFunc(func(_ context.Context, _ string) (*models.Snapshot, error) {
			return ynab.LoadSnapshotFile(path)
		}), nil
	}

	opts := []ynab.Option{
		ynab.WithLogger(logger),
		ynab.WithMaxAttempts(cfg.MaxAttempts),
		ynab.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, ynab.WithBaseURL(cfg.APIBaseURL))
	}
	return ynab.New(cfg.Token, opts...)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")

	for _, cmd := range []*cobra.Command{buildCmd, inspectCmd} {
		cmd.Flags().String("budget", "last-used", "Budget ID")
		cmd.Flags().String("output", "_site", "Output directory")
		cmd.Flags().String("static", "_static", "Static assets directory")
		cmd.Flags().String("site", "site.yaml", "Site manifest file")
		cmd.Flags().String("snapshot", "", "Local transactions JSON file instead of the API")
	}
	inspectCmd.Flags().Bool("dump", false, "Pretty-print the full snapshot")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
