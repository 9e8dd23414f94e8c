package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arames/git-recruiting/pkg/gitlocator"
	"github.com/arames/git-recruiting/pkg/gitmirror"
)

var cleanAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the repository mirror cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached repository mirrors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openManager()
		if err != nil {
			return err
		}

		entries, err := manager.Entries()
		if err != nil {
			return fmt.Errorf("failed to read mirror index: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Cache is empty.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s\n  cloned %s, refreshed %s\n  %s\n",
				e.URL,
				e.ClonedAt.Format("2006-01-02"),
				e.UpdatedAt.Format("2006-01-02 15:04"),
				e.Path)
		}
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean [repository]",
	Short: "Remove cached mirrors",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanAll == (len(args) == 1) {
			return fmt.Errorf("pass either a repository locator or --all")
		}

		manager, err := openManager()
		if err != nil {
			return err
		}

		if cleanAll {
			if err := manager.RemoveAll(); err != nil {
				return fmt.Errorf("failed to clean cache: %w", err)
			}
			logger.Info("Cache cleaned")
			return nil
		}

		// Web locators and clone URLs must map to the same mirror.
		target, err := gitlocator.Resolve(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve repository locator %q: %w", args[0], err)
		}
		if target.IsLocal() {
			return fmt.Errorf("%s is a local repository, not a cached mirror", args[0])
		}

		if err := manager.Remove(target.CloneURL); err != nil {
			return fmt.Errorf("failed to remove cached mirror for %s: %w", args[0], err)
		}
		logger.WithField("repository", args[0]).Info("Cached mirror removed")
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "mirror cache directory")
	cacheCleanCmd.Flags().BoolVar(&cleanAll, "all", false, "remove every cached mirror")
	cacheCmd.AddCommand(cacheListCmd, cacheCleanCmd)
}

func openManager() (*gitmirror.Manager, error) {
	cacheDir := flagCacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheRoot
	}
	manager, err := gitmirror.NewManager(cacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror cache at %s: %w", cacheDir, err)
	}
	return manager, nil
}
