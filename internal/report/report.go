// Package report renders a contributor table as CSV for spreadsheet import,
// optionally with per-author line statistics and LinkedIn people-search links.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/arames/git-recruiting/pkg/gitcontributors"
)

const dateLayout = "2006-01-02"

// Options selects the optional report columns.
type Options struct {
	IncludeLinkedIn  bool
	IncludeLineStats bool
}

// LinkedInSearchURL returns a LinkedIn people-search URL for the given
// contributor name. This is a keyword search, not a profile link; the
// recruiter still has to pick the right person from the results.
func LinkedInSearchURL(name string) string {
	return "https://www.linkedin.com/search/results/people/?keywords=" + url.QueryEscape(name)
}

// WriteCSV writes the contributor table to w in ranked order.
func WriteCSV(w io.Writer, contributors []gitcontributors.Contributor, opts Options) error {
	cw := csv.NewWriter(w)

	header := []string{"Name", "Email", "Commits"}
	if opts.IncludeLineStats {
		header = append(header, "Lines Added", "Lines Deleted")
	}
	header = append(header, "First Commit", "Last Commit")
	if opts.IncludeLinkedIn {
		header = append(header, "LinkedIn Search")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range contributors {
		row := []string{c.Name, c.Email, strconv.Itoa(c.Commits)}
		if opts.IncludeLineStats {
			row = append(row, strconv.Itoa(c.LinesAdded), strconv.Itoa(c.LinesDeleted))
		}
		row = append(row, c.FirstCommit.Format(dateLayout), c.LastCommit.Format(dateLayout))
		if opts.IncludeLinkedIn {
			row = append(row, LinkedInSearchURL(c.Name))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", c.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return nil
}

// WriteCSVFile writes the contributor table to the named file.
func WriteCSVFile(path string, contributors []gitcontributors.Contributor, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	if err := WriteCSV(f, contributors, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file %s: %w", path, err)
	}
	return nil
}
