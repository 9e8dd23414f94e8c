// Command gitrecruit analyzes the commit history of a git repository and
// writes a ranked contributor table for technical sourcing.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	recruiting "github.com/arames/git-recruiting"
	"github.com/arames/git-recruiting/internal/brief"
	"github.com/arames/git-recruiting/internal/config"
	"github.com/arames/git-recruiting/internal/prefs"
	"github.com/arames/git-recruiting/internal/report"
	"github.com/arames/git-recruiting/pkg/gitcontributors"
	"github.com/arames/git-recruiting/pkg/gitlocator"
	"github.com/arames/git-recruiting/pkg/gitproviders"
)

const dateLayout = "2006-01-02"

var (
	logger = logrus.New()
	cfg    = config.Default()

	configPath string
	verbose    bool

	flagSubdir    string
	flagBranch    string
	flagSince     string
	flagUntil     string
	flagOutput    string
	flagCacheDir  string
	noLinkedIn    bool
	lineStats     bool
	flagFormat    string
	noInteractive bool
	allowStale    bool
	makeBrief     bool
)

var rootCmd = &cobra.Command{
	Use:   "gitrecruit [repository]",
	Short: "Rank git contributors for technical sourcing",
	Long: `gitrecruit reads the commit history of a git repository (a local path,
a clone URL, or a GitHub web URL) and writes a CSV of its contributors ranked
by commit count, with first/last activity dates and optional LinkedIn search
links. Remote repositories are mirrored into a local cache and refreshed on
later runs.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}

		if err := godotenv.Load(); err == nil {
			logger.Debug("Loaded environment from .env file")
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config file, using defaults")
			return
		}
		cfg = loaded
	},
	RunE: runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVarP(&flagSubdir, "subdir", "s", "", "only count commits touching this subdirectory")
	rootCmd.Flags().StringVarP(&flagBranch, "branch", "b", "", "branch or ref to analyze (default: remote default branch)")
	rootCmd.Flags().StringVar(&flagSince, "since", "", "only count commits on or after this date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&flagUntil, "until", "", "only count commits on or before this date (YYYY-MM-DD)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "CSV output file (default: contributors.csv)")
	rootCmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "mirror cache directory")
	rootCmd.Flags().BoolVar(&noLinkedIn, "no-linkedin", false, "omit LinkedIn search links from the report")
	rootCmd.Flags().BoolVar(&lineStats, "line-stats", false, "also collect added/deleted line counts (slow on large repos)")
	rootCmd.Flags().StringVar(&flagFormat, "format", "", "output format: csv or numbers (spreadsheet-ready)")
	rootCmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "never prompt; use flags and saved preferences as-is")
	rootCmd.Flags().BoolVar(&allowStale, "allow-stale", false, "analyze the cached mirror even if refreshing it fails")
	rootCmd.Flags().BoolVar(&makeBrief, "brief", false, "also generate an AI recruiting brief (needs Gemini credentials)")

	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := gatherOptions(cmd, args)
	if err != nil {
		return err
	}
	if opts.Repo == "" {
		return fmt.Errorf("no repository given: pass a path or URL, or run interactively")
	}

	since, until, err := parseDateRange(opts.Since, opts.Until)
	if err != nil {
		return err
	}

	maybeDescribeRemote(cmd, opts.Repo)

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheRoot
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	progress := func(n int) {
		if interactive {
			fmt.Printf("\rReading history... %d commits", n)
		}
	}

	branch := opts.Branch
	if branch == "HEAD" {
		// HEAD is the default; let a web-locator branch win over it.
		branch = ""
	}

	result, err := recruiting.Analyze(cmd.Context(), recruiting.Options{
		Repo:       opts.Repo,
		Branch:     branch,
		Subdir:     opts.Subdir,
		Since:      since,
		Until:      until,
		CacheRoot:  cacheDir,
		LineStats:  opts.LineStats,
		AllowStale: allowStale,
		Logger:     logger,
		Progress:   progress,
	})
	if interactive {
		fmt.Print("\r\033[K")
	}
	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		logger.Warn(warning.Error())
	}
	if len(result.Contributors) == 0 {
		logger.Warn("No contributors found in the selected history; nothing to write")
		return nil
	}

	printTable(result.Contributors)

	reportOpts := report.Options{
		IncludeLinkedIn:  opts.LinkedIn,
		IncludeLineStats: opts.LineStats,
	}
	if err := report.WriteCSVFile(opts.Output, result.Contributors, reportOpts); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"contributors": len(result.Contributors),
		"output":       opts.Output,
	}).Info("Report written")
	if opts.Format == "numbers" {
		logger.Info("You can open this file directly in Apple Numbers or Microsoft Excel")
	}

	if makeBrief {
		content, err := brief.Generate(cmd.Context(), result.Contributors, cfg.Brief, logger)
		if err != nil {
			return fmt.Errorf("failed to generate recruiting brief: %w", err)
		}
		briefPath := brief.DefaultOutputPath()
		if err := os.WriteFile(briefPath, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write recruiting brief %s: %w", briefPath, err)
		}
		logger.WithField("output", briefPath).Info("Recruiting brief written")
	}

	return nil
}

// gatherOptions merges saved preferences, the interactive menu and command
// line flags, in increasing order of precedence.
func gatherOptions(cmd *cobra.Command, args []string) (prefs.Options, error) {
	opts := prefs.DefaultOptions()

	workDir, err := os.Getwd()
	if err != nil {
		return opts, fmt.Errorf("failed to determine working directory: %w", err)
	}
	if loaded, err := prefs.Load(workDir); err != nil {
		logger.WithError(err).Warn("Ignoring unreadable preferences file")
	} else {
		opts = loaded
	}

	if len(args) == 1 {
		opts.Repo = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("subdir") {
		opts.Subdir = flagSubdir
	}
	if flags.Changed("branch") {
		opts.Branch = flagBranch
	}
	if flags.Changed("since") {
		opts.Since = flagSince
	}
	if flags.Changed("until") {
		opts.Until = flagUntil
	}
	if flags.Changed("output") {
		opts.Output = flagOutput
	}
	if flags.Changed("cache-dir") {
		opts.CacheDir = flagCacheDir
	}
	if flags.Changed("no-linkedin") {
		opts.LinkedIn = !noLinkedIn
	}
	if flags.Changed("line-stats") {
		opts.LineStats = lineStats
	}
	if flags.Changed("format") {
		opts.Format = flagFormat
	}

	if opts.Format != "csv" && opts.Format != "numbers" {
		return opts, fmt.Errorf("invalid format %q: must be csv or numbers", opts.Format)
	}

	// With no repository argument, fall into the menu so the run can be
	// configured (and the choices saved) interactively.
	if len(args) == 0 && !noInteractive && term.IsTerminal(int(os.Stdin.Fd())) {
		return runMenu(workDir, opts)
	}
	return opts, nil
}

func parseDateRange(sinceStr, untilStr string) (since, until *time.Time, err error) {
	if sinceStr != "" {
		parsed, err := time.ParseInLocation(dateLayout, sinceStr, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --since date %q: %w", sinceStr, err)
		}
		since = &parsed
	}
	if untilStr != "" {
		parsed, err := time.ParseInLocation(dateLayout, untilStr, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --until date %q: %w", untilStr, err)
		}
		endOfDay := parsed.Add(24*time.Hour - time.Second)
		until = &endOfDay
	}
	if since != nil && until != nil && until.Before(*since) {
		return nil, nil, fmt.Errorf("--until %s is before --since %s", untilStr, sinceStr)
	}
	return since, until, nil
}

// maybeDescribeRemote logs GitHub metadata for web locators. Failures are
// ignored; the analysis only needs git, not the hosting API.
func maybeDescribeRemote(cmd *cobra.Command, locator string) {
	target, err := gitlocator.Resolve(locator)
	if err != nil || target.IsLocal() {
		return
	}
	owner, repo, ok := target.GitHubRepo()
	if !ok {
		return
	}

	client, err := gitproviders.NewGitHubClient(cmd.Context())
	if err != nil {
		logger.WithError(err).Debug("Skipping GitHub metadata lookup")
		return
	}
	repository, err := client.GetRepository(owner, repo)
	if err != nil {
		logger.WithError(err).Debug("GitHub metadata lookup failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"repository":     repository.Owner + "/" + repository.Name,
		"default_branch": repository.DefaultBranch,
	}).Info(firstLine(repository.Description))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// printTable writes a ranked contributor summary to stdout.
func printTable(contributors []gitcontributors.Contributor) {
	fmt.Println("  Commits | First Commit | Last Commit | Name & Email")
	for _, c := range contributors {
		who := c.Name
		if c.Email != "" {
			who = fmt.Sprintf("%s <%s>", c.Name, c.Email)
		}
		fmt.Printf("  %7d | %s   | %s  | %s\n",
			c.Commits, c.FirstCommit.Format(dateLayout), c.LastCommit.Format(dateLayout), who)
	}
	fmt.Println()
}
