package directory

import (
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// MinScore is the similarity (0-100) a project needs to appear in search results.
const MinScore = 60

// Rank orders projects by fuzzy similarity of their name or client name to
// query, best first, dropping weak matches. An empty query returns projects
// unchanged.
func Rank(query string, projects []domain.Project) []domain.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]domain.Project(nil), projects...)
	}

	type scored struct {
		p     domain.Project
		score int
	}
	var hits []scored
	for _, p := range projects {
		s := score(q, p)
		if s >= MinScore {
			hits = append(hits, scored{p: p, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Project, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}

func score(q string, p domain.Project) int {
	name := strings.ToLower(p.Name)
	best := fuzzy.Ratio(q, name)
	if strings.Contains(name, q) {
		best = max(best, 90)
	}
	if p.ClientName != "" {
		best = max(best, fuzzy.Ratio(q, strings.ToLower(p.ClientName)))
	}
	return best
}
