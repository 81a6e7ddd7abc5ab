// Package scoring turns the raw response set of a run into per-entity
// visibility, share-of-voice, position, and sentiment rankings. Everything
// here is a pure function of its inputs: rankings are recomputed in full on
// every call and never updated incrementally.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/visiblelabs/brandscope/internal/domain"
)

// sentiment labels mapped onto a 0-100 scale, averaged over mentioning
// responses.
var sentimentValue = map[domain.Sentiment]float64{
	domain.SentimentPositive: 100,
	domain.SentimentNeutral:  50,
	domain.SentimentNegative: 0,
}

// PreviousScores maps entity name to the visibility score of a prior run,
// used to fill WeeklyChange. A nil map leaves all deltas at zero.
type PreviousScores map[string]float64

// Rank computes the full ranking for the target company plus its
// competitors. Entities with zero mentions are retained with score 0 so the
// comparison set stays complete. Ordering is descending by visibility,
// ties broken by share of voice, then by stable input order (target first,
// competitors as supplied).
func Rank(company domain.Company, competitors []string, responses []domain.Response, previous PreviousScores) []domain.CompetitorRanking {
	entities := make([]string, 0, len(competitors)+1)
	entities = append(entities, company.Name)
	entities = append(entities, competitors...)

	mentions := make(map[string]int, len(entities))
	positionSum := make(map[string]int, len(entities))
	positionCount := make(map[string]int, len(entities))
	sentimentSum := make(map[string]float64, len(entities))

	totalMentions := 0
	for _, resp := range responses {
		for _, name := range entities {
			if !mentioned(resp, name, company.Name) {
				continue
			}
			mentions[name]++
			totalMentions++
			sentimentSum[name] += sentimentValue[resp.Sentiment]
			if name == company.Name && resp.BrandPosition > 0 {
				positionSum[name] += resp.BrandPosition
				positionCount[name]++
			}
		}
	}

	rankings := make([]domain.CompetitorRanking, 0, len(entities))
	for _, name := range entities {
		r := domain.CompetitorRanking{
			Name:     name,
			IsOwn:    name == company.Name,
			Mentions: mentions[name],
		}
		if len(responses) > 0 {
			r.VisibilityScore = round1(float64(mentions[name]) / float64(len(responses)) * 100)
		}
		if totalMentions > 0 {
			r.ShareOfVoice = round3(float64(mentions[name]) / float64(totalMentions))
		}
		if positionCount[name] > 0 {
			r.AveragePosition = round1(float64(positionSum[name]) / float64(positionCount[name]))
		}
		if mentions[name] > 0 {
			r.SentimentScore = round1(sentimentSum[name] / float64(mentions[name]))
		}
		if previous != nil {
			if prev, ok := previous[name]; ok {
				r.WeeklyChange = round1(r.VisibilityScore - prev)
			}
		}
		rankings = append(rankings, r)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].VisibilityScore != rankings[j].VisibilityScore {
			return rankings[i].VisibilityScore > rankings[j].VisibilityScore
		}
		return rankings[i].ShareOfVoice > rankings[j].ShareOfVoice
	})
	return rankings
}

// RankByProvider repeats the ranking computation restricted to each
// provider's own responses, and derives the cross-provider comparison
// matrix from the per-provider visibility scores.
func RankByProvider(company domain.Company, competitors []string, responses []domain.Response, previous PreviousScores) (domain.ProviderRankings, *domain.ProviderComparison) {
	byProvider := make(map[string][]domain.Response)
	providers := make([]string, 0, 4)
	for _, resp := range responses {
		if _, seen := byProvider[resp.Provider]; !seen {
			providers = append(providers, resp.Provider)
		}
		byProvider[resp.Provider] = append(byProvider[resp.Provider], resp)
	}
	sort.Strings(providers)

	rankings := make(domain.ProviderRankings, len(providers))
	for _, p := range providers {
		rankings[p] = Rank(company, competitors, byProvider[p], previous)
	}

	comparison := &domain.ProviderComparison{Providers: providers}
	entities := append([]string{company.Name}, competitors...)
	for _, name := range entities {
		row := domain.ComparisonRow{
			Name:   name,
			IsOwn:  name == company.Name,
			Scores: make(map[string]float64, len(providers)),
		}
		for _, p := range providers {
			for _, r := range rankings[p] {
				if r.Name == name {
					row.Scores[p] = r.VisibilityScore
					break
				}
			}
		}
		comparison.Entities = append(comparison.Entities, row)
	}
	return rankings, comparison
}

// PreviousFromRankings converts a prior run's rankings into the lookup
// shape Rank consumes for weekly deltas.
func PreviousFromRankings(rankings []domain.CompetitorRanking) PreviousScores {
	if len(rankings) == 0 {
		return nil
	}
	prev := make(PreviousScores, len(rankings))
	for _, r := range rankings {
		prev[r.Name] = r.VisibilityScore
	}
	return prev
}

// mentioned reports whether a response counts as a mention of the entity.
// The target company is tracked by the analyzed BrandMentioned flag; every
// other entity by its presence in the response's competitor list.
func mentioned(resp domain.Response, entity, brand string) bool {
	if entity == brand {
		return resp.BrandMentioned
	}
	for _, name := range resp.CompetitorsMentioned {
		if strings.EqualFold(name, entity) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
