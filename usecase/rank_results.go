package usecase

import (
	"sort"

	"thai-search-proxy/domain"
)

// Ranking bonuses. Normalised weighted scores live in (0, 2]; the bonuses
// push exact and compound matches above fragment matches.
const (
	exactMatchBonus    = 0.5
	compoundMatchBonus = 0.3
)

// RankResultsUsecase deduplicates per-variant hits and rescores them:
//
//	final = max_over_variants(weight * normalised(raw)) + bonuses
//
// Raw scores are normalised per variant so the top hit of each variant is
// 1.0, preventing one backend scoring quirk from dominating the fusion.
type RankResultsUsecase struct{}

func NewRankResultsUsecase() *RankResultsUsecase { return &RankResultsUsecase{} }

type rankedAgg struct {
	hit        domain.SearchHit
	best       float64
	bestRaw    float64
	variants   map[domain.VariantKind]bool
	exactMatch bool
}

// Rank fuses the variant result sets. originalQuery is the raw query used for
// the exact-highlight bonus; hasCompound gates the compound bonus.
func (u *RankResultsUsecase) Rank(results []VariantResult, originalQuery string, hasCompound bool, limit, offset int) domain.RankedResult {
	aggs := make(map[string]*rankedAgg)

	for _, vr := range results {
		var maxRaw float64
		for _, h := range vr.Hits {
			if h.RawScore > maxRaw {
				maxRaw = h.RawScore
			}
		}

		for _, h := range vr.Hits {
			norm := 0.0
			if maxRaw > 0 {
				norm = h.RawScore / maxRaw
			}
			weighted := vr.Variant.Weight * norm

			agg, ok := aggs[h.DocID]
			if !ok {
				agg = &rankedAgg{hit: h, best: weighted, bestRaw: h.RawScore, variants: map[domain.VariantKind]bool{}}
				aggs[h.DocID] = agg
			}
			agg.variants[h.VariantKind] = true
			if weighted > agg.best || (weighted == agg.best && h.RawScore > agg.bestRaw) {
				agg.best = weighted
				agg.bestRaw = h.RawScore
				agg.hit = h
			}
			if !agg.exactMatch {
				for _, snippet := range h.Highlights {
					if snippet == originalQuery {
						agg.exactMatch = true
						break
					}
				}
			}
		}
	}

	hits := make([]domain.RankedHit, 0, len(aggs))
	for _, agg := range aggs {
		final := agg.best
		if agg.exactMatch {
			final += exactMatchBonus
		}
		if hasCompound && (agg.variants[domain.VariantTokenized] || agg.variants[domain.VariantCompoundSplit]) {
			final += compoundMatchBonus
		}

		kinds := make([]domain.VariantKind, 0, len(agg.variants))
		for k := range agg.variants {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

		hits = append(hits, domain.RankedHit{
			SearchHit:  agg.hit,
			FinalScore: final,
			Variants:   kinds,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore != hits[j].FinalScore {
			return hits[i].FinalScore > hits[j].FinalScore
		}
		if len(hits[i].Variants) != len(hits[j].Variants) {
			return len(hits[i].Variants) > len(hits[j].Variants)
		}
		return hits[i].DocID < hits[j].DocID
	})

	total := len(hits)
	if offset >= total {
		return domain.RankedResult{Hits: []domain.RankedHit{}, TotalHits: total}
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return domain.RankedResult{Hits: hits[offset:end], TotalHits: total}
}
