// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import (
	"math"
	"sort"

	"github.com/tomtom215/agrosense/internal/crop"
)

// Rank builds one entry per label present in table, sorted by descending
// confidence and truncated to k. Ties keep the order of labels. Labels not in
// the table are skipped. A label missing from dist has confidence 0.
//
// When labels is empty the keys of dist are used in alphabetical order.
// k <= 0 returns every entry. Explanations are left empty; see Annotate.
func Rank(dist map[string]float64, labels []string, table *crop.Table, k int) []Entry {
	entries, _ := rank(dist, labels, table, k)
	return entries
}

// rank is Rank that also reports how many labels were skipped.
func rank(dist map[string]float64, labels []string, table *crop.Table, k int) ([]Entry, int) {
	if len(labels) == 0 {
		labels = make([]string, 0, len(dist))
		for label := range dist {
			labels = append(labels, label)
		}
		sort.Strings(labels)
	}

	entries := make([]Entry, 0, len(labels))
	skipped := 0
	for _, label := range labels {
		p, ok := table.Lookup(label)
		if !ok {
			skipped++
			continue
		}
		conf := dist[label]
		score := clampScore(conf * 100)
		entries = append(entries, Entry{
			Crop:             label,
			Confidence:       conf,
			SuitabilityScore: score,
			Tier:             TierOf(score),
			ExpectedYield:    p.ExpectedYield,
			DurationDays:     p.DurationDays,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Confidence > entries[j].Confidence
	})

	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries, skipped
}

func clampScore(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Annotate fills in Explanations for each entry from its table profile.
func Annotate(entries []Entry, obs crop.Observation, table *crop.Table) {
	for i := range entries {
		p, ok := table.Lookup(entries[i].Crop)
		if !ok {
			continue
		}
		entries[i].Explanations = Messages(Explain(obs, p))
	}
}
