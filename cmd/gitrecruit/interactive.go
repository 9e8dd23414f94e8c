package main

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/arames/git-recruiting/internal/prefs"
	"github.com/arames/git-recruiting/pkg/gitlocator"
)

// runMenu walks the user through the analysis options with a numbered menu
// and returns when they choose to run. Choosing to run or to save persists
// the options to the preferences file in workDir.
func runMenu(workDir string, opts prefs.Options) (prefs.Options, error) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Git Contributor Analysis - Interactive Mode")
	fmt.Println(strings.Repeat("=", 60))
	if prefs.Exists(workDir) {
		fmt.Printf("\n(Options loaded from %s)\n", prefs.FileName)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		printMenu(opts)

		choice, err := readLine(reader, "\nSelect option (0-10, r, s): ")
		if err != nil {
			return opts, err
		}

		switch strings.ToLower(choice) {
		case "0":
			fmt.Println("Exiting without saving...")
			os.Exit(0)
		case "s":
			if err := prefs.Save(workDir, opts); err != nil {
				logger.WithError(err).Warn("Could not save preferences")
			} else {
				logger.WithField("path", prefs.Path(workDir)).Info("Options saved")
			}
		case "1":
			if err := promptRepo(reader, &opts); err != nil {
				return opts, err
			}
		case "2":
			opts.Subdir, err = readLine(reader, "Enter subdirectory (leave empty for none): ")
		case "3":
			branch, berr := readLine(reader, "Enter branch name [HEAD]: ")
			err = berr
			if branch == "" {
				branch = "HEAD"
			}
			opts.Branch = branch
		case "4":
			opts.Since, err = readLine(reader, "Enter start date (YYYY-MM-DD or leave empty): ")
		case "5":
			opts.Until, err = readLine(reader, "Enter end date (YYYY-MM-DD or leave empty): ")
		case "6":
			output, oerr := readLine(reader, "Enter output file path: ")
			err = oerr
			if output != "" {
				opts.Output = output
			}
		case "7":
			format, ferr := readLine(reader, "Enter format (csv/numbers) [numbers]: ")
			err = ferr
			format = strings.ToLower(format)
			if format != "csv" {
				format = "numbers"
			}
			opts.Format = format
		case "8":
			answer, aerr := readLine(reader, "Include LinkedIn search URLs? (y/n) [y]: ")
			err = aerr
			opts.LinkedIn = strings.ToLower(answer) != "n"
		case "9":
			answer, aerr := readLine(reader, "Include line statistics? (y/n) [n]: ")
			err = aerr
			opts.LineStats = strings.ToLower(answer) == "y"
		case "10":
			opts.CacheDir, err = readLine(reader, "Enter cache directory path: ")
		case "r":
			if opts.Repo == "" {
				fmt.Println("\nError: Repository URL is required!")
				continue
			}
			if err := prefs.Save(workDir, opts); err != nil {
				logger.WithError(err).Warn("Could not save preferences")
			}
			return opts, nil
		default:
			fmt.Println("Invalid option!")
		}
		if err != nil {
			return opts, err
		}
	}
}

func printMenu(opts prefs.Options) {
	orDefault := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}

	fmt.Println("\nCurrent Configuration:")
	fmt.Printf("  1. Repository URL: %s\n", orDefault(opts.Repo, "(not set)"))
	fmt.Printf("  2. Subdirectory: %s\n", orDefault(opts.Subdir, "(none)"))
	fmt.Printf("  3. Branch: %s\n", opts.Branch)
	fmt.Printf("  4. Since date: %s\n", orDefault(opts.Since, "(all time)"))
	fmt.Printf("  5. Until date: %s\n", orDefault(opts.Until, "(now)"))
	fmt.Printf("  6. Output file: %s\n", opts.Output)
	fmt.Printf("  7. Output format: %s\n", opts.Format)
	fmt.Printf("  8. Include LinkedIn: %t\n", opts.LinkedIn)
	fmt.Printf("  9. Include line statistics: %t\n", opts.LineStats)
	fmt.Printf(" 10. Cache directory: %s\n", orDefault(opts.CacheDir, "(default)"))
	fmt.Println("\n  r. Run Analysis")
	fmt.Println("  s. Save options and exit")
	fmt.Println("  0. Exit without saving")
}

// promptRepo reads a repository locator and folds any branch or subdirectory
// embedded in a web URL into the options.
func promptRepo(reader *bufio.Reader, opts *prefs.Options) error {
	raw, err := readLine(reader, "Enter repository URL: ")
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}

	target, err := gitlocator.Resolve(raw)
	if err != nil {
		fmt.Printf("  Invalid repository locator: %v\n", err)
		return nil
	}
	opts.Repo = target.Canonical()

	if target.Branch != "" {
		fmt.Printf("  -> Detected branch: %s\n", target.Branch)
		opts.Branch = target.Branch
	}
	if target.Subdir != "" {
		fmt.Printf("  -> Detected subdirectory: %s\n", target.Subdir)
		if opts.Subdir != "" {
			merged := path.Join(opts.Subdir, target.Subdir)
			fmt.Printf("  -> Merging with existing subdir: %s\n", merged)
			opts.Subdir = merged
		} else {
			opts.Subdir = target.Subdir
		}
	}
	if opts.Repo != raw {
		fmt.Printf("  -> Normalized to: %s\n", opts.Repo)
	}
	return nil
}

func readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
