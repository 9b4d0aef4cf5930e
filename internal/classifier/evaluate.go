// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/synth"
)

// StratifiedSplit partitions samples into train and test sets, taking
// round(testRatio * n) samples of every label for the test set. The input
// order within each label is shuffled with rng; output keeps label groups in
// first-seen order. The input slice is not modified.
func StratifiedSplit(samples []synth.Sample, testRatio float64, rng *rand.Rand) (train, test []synth.Sample, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	if rng == nil {
		return nil, nil, errors.New("random source is required")
	}

	var order []string
	groups := make(map[string][]int)
	for i := range samples {
		label := samples[i].Label
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], i)
	}

	nTest := int(math.Round(testRatio * float64(len(samples))))
	train = make([]synth.Sample, 0, len(samples)-nTest)
	test = make([]synth.Sample, 0, nTest)

	for _, label := range order {
		idx := groups[label]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		k := int(math.Round(testRatio * float64(len(idx))))
		for _, i := range idx[:k] {
			test = append(test, samples[i])
		}
		for _, i := range idx[k:] {
			train = append(train, samples[i])
		}
	}

	return train, test, nil
}

// Report summarizes classifier accuracy on a labeled set.
type Report struct {
	// Samples is the number of evaluated samples.
	Samples int `json:"samples"`

	// Correct is the number of arg-max hits.
	Correct int `json:"correct"`

	// Accuracy is Correct / Samples.
	Accuracy float64 `json:"accuracy"`

	// PerCrop holds accuracy per true label, which equals its recall.
	PerCrop map[string]float64 `json:"per_crop"`

	// Classes holds precision, recall and F1 per label.
	Classes map[string]ClassMetrics `json:"classes"`

	// MacroF1 is the unweighted mean of the per-label F1 scores.
	MacroF1 float64 `json:"macro_f1"`
}

// ClassMetrics are one-vs-rest scores for a single label.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	// Support is the number of samples with this true label.
	Support int `json:"support"`
}

// Predict returns the most probable label. Ties go to the earliest label in
// cls.Labels().
func Predict(ctx context.Context, cls recommend.Classifier, s *synth.Sample) (string, error) {
	return predictFeatures(ctx, cls, s.Observation.Features())
}

func predictFeatures(ctx context.Context, cls recommend.Classifier, features [crop.NumFeatures]float64) (string, error) {
	dist, err := cls.PredictProba(ctx, features)
	if err != nil {
		return "", err
	}

	best, bestP := "", math.Inf(-1)
	for _, label := range cls.Labels() {
		if p := dist[label]; p > bestP {
			best, bestP = label, p
		}
	}
	return best, nil
}

// Evaluate scores cls against samples.
func Evaluate(ctx context.Context, cls recommend.Classifier, samples []synth.Sample) (Report, error) {
	if len(samples) == 0 {
		return Report{}, ErrNoSamples
	}

	totals := make(map[string]int)    // by true label
	predicted := make(map[string]int) // by predicted label
	hits := make(map[string]int)
	correct := 0
	for i := range samples {
		got, err := Predict(ctx, cls, &samples[i])
		if err != nil {
			return Report{}, fmt.Errorf("predict sample %d: %w", i, err)
		}
		label := samples[i].Label
		totals[label]++
		predicted[got]++
		if got == label {
			hits[label]++
			correct++
		}
	}

	perCrop := make(map[string]float64, len(totals))
	classes := make(map[string]ClassMetrics, len(totals))
	var f1Sum float64
	for label, n := range totals {
		m := ClassMetrics{Support: n, Recall: float64(hits[label]) / float64(n)}
		if predicted[label] > 0 {
			m.Precision = float64(hits[label]) / float64(predicted[label])
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		perCrop[label] = m.Recall
		classes[label] = m
		f1Sum += m.F1
	}

	return Report{
		Samples:  len(samples),
		Correct:  correct,
		Accuracy: float64(correct) / float64(len(samples)),
		PerCrop:  perCrop,
		Classes:  classes,
		MacroF1:  f1Sum / float64(len(totals)),
	}, nil
}

// MeasuredFeatures is the number of leading feature columns that come
// straight from field readings; the rest are derived from them or the month.
const MeasuredFeatures = 7

// FeatureImportance is the accuracy lost when one feature column is shuffled.
type FeatureImportance struct {
	Feature string `json:"feature"`
	// Importance is the baseline accuracy minus the mean shuffled accuracy.
	Importance float64 `json:"importance"`
}

// PermutationImportance measures how much cls relies on each measured
// feature. Every column is shuffled repeats times across samples, breaking
// its link to the label, and the mean drop in accuracy is reported. Results
// follow crop.FeatureNames order.
func PermutationImportance(ctx context.Context, cls recommend.Classifier, samples []synth.Sample, repeats int, rng *rand.Rand) ([]FeatureImportance, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if repeats < 1 {
		return nil, fmt.Errorf("repeats must be positive, got %d", repeats)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}

	vectors := make([][crop.NumFeatures]float64, len(samples))
	for i := range samples {
		vectors[i] = samples[i].Observation.Features()
	}

	accuracy := func(column int, perm []int) (float64, error) {
		correct := 0
		for i := range vectors {
			v := vectors[i]
			if perm != nil {
				v[column] = vectors[perm[i]][column]
			}
			got, err := predictFeatures(ctx, cls, v)
			if err != nil {
				return 0, err
			}
			if got == samples[i].Label {
				correct++
			}
		}
		return float64(correct) / float64(len(vectors)), nil
	}

	baseline, err := accuracy(0, nil)
	if err != nil {
		return nil, fmt.Errorf("baseline accuracy: %w", err)
	}

	out := make([]FeatureImportance, MeasuredFeatures)
	for j := 0; j < MeasuredFeatures; j++ {
		var sum float64
		for r := 0; r < repeats; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			acc, err := accuracy(j, rng.Perm(len(vectors)))
			if err != nil {
				return nil, fmt.Errorf("shuffled %s: %w", crop.FeatureNames[j], err)
			}
			sum += acc
		}
		out[j] = FeatureImportance{
			Feature:    crop.FeatureNames[j],
			Importance: baseline - sum/float64(repeats),
		}
	}
	return out, nil
}
