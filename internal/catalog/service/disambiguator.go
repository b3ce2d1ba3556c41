package service

import (
	"context"
	"sort"
	"strings"

	"salesquote_backend/internal/catalog/repository"
	"salesquote_backend/platform/config"
)

// Name-match scores. Exact matches short-circuit everything else; fuzzy
// matches only reach the auto-resolve threshold when corroborated by the
// account's email domain.
const (
	scoreExact     = 1.0
	scorePrefix    = 0.8
	scoreSubstring = 0.7
	scoreTokens    = 0.5
	domainBonus    = 0.1
	fuzzyScoreCap  = 0.9
)

// AccountCandidate is a scored account match.
type AccountCandidate struct {
	Account    repository.Account
	Confidence float64
}

// MatchResult is the outcome of an account lookup.
type MatchResult struct {
	Candidates []AccountCandidate
	// Resolved is true when the top candidate clears the confidence
	// threshold and leads the runner-up by more than the near-tie margin.
	Resolved bool
}

// Top returns the best candidate, or nil when there are none.
func (r MatchResult) Top() *AccountCandidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Disambiguator resolves free-text account references to accounts.
type Disambiguator struct {
	repo      repository.Repository
	threshold float64
	margin    float64
}

// NewDisambiguator creates a disambiguator with the configured policy.
func NewDisambiguator(repo repository.Repository, cfg config.DisambiguationConfig) *Disambiguator {
	return &Disambiguator{
		repo:      repo,
		threshold: cfg.GetConfidenceThreshold(),
		margin:    cfg.GetNearTieMargin(),
	}
}

// Find scores every account against the query and returns candidates in
// descending confidence order. An exact case-insensitive name match returns
// that single candidate at full confidence.
func (d *Disambiguator) Find(ctx context.Context, query string) (MatchResult, error) {
	accounts, err := d.repo.ListAccounts(ctx)
	if err != nil {
		return MatchResult{}, err
	}

	needle := normalize(query)
	if needle == "" {
		return MatchResult{}, nil
	}

	var candidates []AccountCandidate
	for _, account := range accounts {
		score := scoreAccount(needle, account)
		if score <= 0 {
			continue
		}
		if score == scoreExact {
			return MatchResult{
				Candidates: []AccountCandidate{{Account: account, Confidence: scoreExact}},
				Resolved:   true,
			}, nil
		}
		candidates = append(candidates, AccountCandidate{Account: account, Confidence: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return MatchResult{
		Candidates: candidates,
		Resolved:   d.isResolved(candidates),
	}, nil
}

func (d *Disambiguator) isResolved(candidates []AccountCandidate) bool {
	if len(candidates) == 0 {
		return false
	}
	if candidates[0].Confidence < d.threshold {
		return false
	}
	if len(candidates) > 1 && candidates[0].Confidence-candidates[1].Confidence < d.margin {
		return false
	}
	return true
}

func scoreAccount(needle string, account repository.Account) float64 {
	name := normalize(account.Name)

	var score float64
	switch {
	case name == needle:
		return scoreExact
	case strings.HasPrefix(name, needle):
		score = scorePrefix
	case strings.Contains(name, needle):
		score = scoreSubstring
	case tokensOverlap(name, needle):
		score = scoreTokens
	default:
		return 0
	}

	if account.Domain != "" && strings.Contains(normalize(account.Domain), strings.ReplaceAll(needle, " ", "")) {
		score += domainBonus
	}
	if score > fuzzyScoreCap {
		score = fuzzyScoreCap
	}
	return score
}

func tokensOverlap(name, needle string) bool {
	nameTokens := strings.Fields(name)
	for _, token := range strings.Fields(needle) {
		for _, nameToken := range nameTokens {
			if token == nameToken {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
