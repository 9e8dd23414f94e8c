// Package gitcontributors aggregates commit records into deduplicated,
// ranked per-contributor statistics.
package gitcontributors

import (
	"sort"
	"strings"
	"time"

	"github.com/arames/git-recruiting/pkg/gitlog"
)

// Contributor holds aggregated statistics for a single contributor identity.
type Contributor struct {
	Name         string
	Email        string
	Commits      int
	FirstCommit  time.Time
	LastCommit   time.Time
	LinesAdded   int
	LinesDeleted int
}

// Source yields commit records one at a time, in the style of bufio.Scanner.
// *gitlog.Iter satisfies it.
type Source interface {
	Next() bool
	Commit() gitlog.Commit
	Err() error
}

// Aggregate consumes a commit source and returns the contributor table,
// sorted by commit count descending with ties broken by case-insensitive
// name ascending (then email, for fully deterministic output). An empty
// source yields an empty table, not an error.
//
// Identity is keyed by the lowercase-normalized author email. Records with
// an empty email fall back to the exact, case-sensitive author name in a
// separate key space, so a name-keyed contributor never merges with an
// email-keyed one even when the names match. This is a deliberate
// simplification rather than identity resolution: one person committing
// under two email addresses appears as two contributors.
//
// The representative Name is the first one encountered for an identity;
// Email is the first non-empty one. Commit IDs are trusted to be unique per
// source; the aggregator does not deduplicate by hash.
func Aggregate(src Source) ([]Contributor, error) {
	byIdentity := make(map[string]*Contributor)

	for src.Next() {
		c := src.Commit()
		key := identityKey(c.AuthorName, c.AuthorEmail)

		agg, exists := byIdentity[key]
		if !exists {
			byIdentity[key] = &Contributor{
				Name:        c.AuthorName,
				Email:       c.AuthorEmail,
				Commits:     1,
				FirstCommit: c.Authored,
				LastCommit:  c.Authored,
			}
			continue
		}

		agg.Commits++
		if agg.Email == "" && c.AuthorEmail != "" {
			agg.Email = c.AuthorEmail
		}
		if c.Authored.Before(agg.FirstCommit) {
			agg.FirstCommit = c.Authored
		}
		if c.Authored.After(agg.LastCommit) {
			agg.LastCommit = c.Authored
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}

	contributors := make([]Contributor, 0, len(byIdentity))
	for _, agg := range byIdentity {
		contributors = append(contributors, *agg)
	}
	sortContributors(contributors)
	return contributors, nil
}

// identityKey merges records by lowercase email, falling back to the exact
// author name for records without one. The prefixes keep the two key spaces
// disjoint.
func identityKey(name, email string) string {
	if e := strings.TrimSpace(email); e != "" {
		return "email:" + strings.ToLower(e)
	}
	return "name:" + name
}

func sortContributors(contributors []Contributor) {
	sort.SliceStable(contributors, func(i, j int) bool {
		if contributors[i].Commits != contributors[j].Commits {
			return contributors[i].Commits > contributors[j].Commits
		}
		nameI := strings.ToLower(contributors[i].Name)
		nameJ := strings.ToLower(contributors[j].Name)
		if nameI != nameJ {
			return nameI < nameJ
		}
		return strings.ToLower(contributors[i].Email) < strings.ToLower(contributors[j].Email)
	})
}

// FromSlice wraps a fixed set of commit records as a Source.
func FromSlice(commits []gitlog.Commit) Source {
	return &sliceSource{commits: commits}
}

type sliceSource struct {
	commits []gitlog.Commit
	pos     int
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.commits) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Commit() gitlog.Commit { return s.commits[s.pos-1] }
func (s *sliceSource) Err() error            { return nil }
