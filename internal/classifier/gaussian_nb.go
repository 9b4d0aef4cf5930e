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
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/synth"
)

// Name is the model identifier reported by GaussianNB.
const Name = "gaussian_nb"

// DefaultVarSmoothing matches the usual Gaussian Naive Bayes default.
const DefaultVarSmoothing = 1e-9

var (
	// ErrNotTrained is returned by PredictProba before Train or Restore.
	ErrNotTrained = errors.New("model not trained")

	// ErrNoSamples is returned when Train receives an empty dataset.
	ErrNoSamples = errors.New("no training samples")
)

type vector = [crop.NumFeatures]float64

// GaussianNB is a Gaussian Naive Bayes classifier over observation vectors.
// It is safe for concurrent use.
type GaussianNB struct {
	varSmoothing float64

	mu        sync.RWMutex
	labels    []string
	logPriors []float64
	means     []vector
	vars      []vector
	version   int
	trainedAt time.Time
}

// NewGaussianNB creates an untrained model. A non-positive varSmoothing
// selects DefaultVarSmoothing.
func NewGaussianNB(varSmoothing float64) *GaussianNB {
	if varSmoothing <= 0 {
		varSmoothing = DefaultVarSmoothing
	}
	return &GaussianNB{varSmoothing: varSmoothing}
}

// Name returns the model identifier.
func (g *GaussianNB) Name() string { return Name }

// Labels returns the class labels in alphabetical order.
func (g *GaussianNB) Labels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Version returns the model version. Each successful Train increments it.
func (g *GaussianNB) Version() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// IsTrained reports whether the model can predict.
func (g *GaussianNB) IsTrained() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.labels) > 0
}

// LastTrainedAt returns when the model was last fitted.
func (g *GaussianNB) LastTrainedAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.trainedAt
}

// classStats accumulates running mean and variance (Welford).
type classStats struct {
	n    int
	mean vector
	m2   vector
}

func (s *classStats) add(x vector) {
	s.n++
	for i := range x {
		delta := x[i] - s.mean[i]
		s.mean[i] += delta / float64(s.n)
		s.m2[i] += delta * (x[i] - s.mean[i])
	}
}

func (s *classStats) variance() vector {
	var v vector
	for i := range s.m2 {
		v[i] = s.m2[i] / float64(s.n)
	}
	return v
}

// StartVersion sets the version counter so the next Train yields v+1.
// Used to continue numbering across process restarts.
func (g *GaussianNB) StartVersion(v int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.version = v
}

// Train fits the model to samples, replacing any previous fit.
func (g *GaussianNB) Train(ctx context.Context, samples []synth.Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	perClass := make(map[string]*classStats)
	var all classStats
	for i := range samples {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x := samples[i].Observation.Features()
		st, ok := perClass[samples[i].Label]
		if !ok {
			st = &classStats{}
			perClass[samples[i].Label] = st
		}
		st.add(x)
		all.add(x)
	}

	var maxVar float64
	for _, v := range all.variance() {
		maxVar = math.Max(maxVar, v)
	}
	epsilon := g.varSmoothing * maxVar
	if epsilon == 0 {
		// Every feature is constant; keep densities finite.
		epsilon = g.varSmoothing
	}

	labels := make([]string, 0, len(perClass))
	for label := range perClass {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	logPriors := make([]float64, len(labels))
	means := make([]vector, len(labels))
	vars := make([]vector, len(labels))
	total := float64(len(samples))
	for i, label := range labels {
		st := perClass[label]
		logPriors[i] = math.Log(float64(st.n) / total)
		means[i] = st.mean
		vars[i] = st.variance()
		for j := range vars[i] {
			vars[i][j] += epsilon
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.labels = labels
	g.logPriors = logPriors
	g.means = means
	g.vars = vars
	g.version++
	g.trainedAt = time.Now()

	return nil
}

// PredictProba returns the posterior probability of every label.
func (g *GaussianNB) PredictProba(ctx context.Context, features [crop.NumFeatures]float64) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.labels) == 0 {
		return nil, ErrNotTrained
	}

	joint := make([]float64, len(g.labels))
	maxJoint := math.Inf(-1)
	for c := range g.labels {
		ll := g.logPriors[c]
		for j, x := range features {
			v := g.vars[c][j]
			d := x - g.means[c][j]
			ll -= 0.5*math.Log(2*math.Pi*v) + d*d/(2*v)
		}
		joint[c] = ll
		maxJoint = math.Max(maxJoint, ll)
	}
	if math.IsInf(maxJoint, 0) || math.IsNaN(maxJoint) {
		return nil, fmt.Errorf("degenerate likelihood for features %v", features)
	}

	var sum float64
	for c := range joint {
		joint[c] = math.Exp(joint[c] - maxJoint)
		sum += joint[c]
	}

	out := make(map[string]float64, len(g.labels))
	for c, label := range g.labels {
		out[label] = joint[c] / sum
	}
	return out, nil
}

// State is the serializable form of a fitted GaussianNB.
type State struct {
	Labels       []string
	LogPriors    []float64
	Means        [][crop.NumFeatures]float64
	Vars         [][crop.NumFeatures]float64
	VarSmoothing float64
	Version      int
	TrainedAt    time.Time
}

// Snapshot returns a copy of the fitted parameters.
func (g *GaussianNB) Snapshot() (State, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.labels) == 0 {
		return State{}, ErrNotTrained
	}

	s := State{
		Labels:       append([]string(nil), g.labels...),
		LogPriors:    append([]float64(nil), g.logPriors...),
		Means:        append([]vector(nil), g.means...),
		Vars:         append([]vector(nil), g.vars...),
		VarSmoothing: g.varSmoothing,
		Version:      g.version,
		TrainedAt:    g.trainedAt,
	}
	return s, nil
}

// Restore replaces the model parameters with s.
//
//nolint:gocritic // State passed by value; restore is infrequent
func (g *GaussianNB) Restore(s State) error {
	n := len(s.Labels)
	if n == 0 {
		return ErrNotTrained
	}
	if len(s.LogPriors) != n || len(s.Means) != n || len(s.Vars) != n {
		return fmt.Errorf("inconsistent model state: %d labels, %d priors, %d means, %d variances",
			n, len(s.LogPriors), len(s.Means), len(s.Vars))
	}
	for c := range s.Vars {
		for j, v := range s.Vars[c] {
			if !(v > 0) {
				return fmt.Errorf("invalid variance %v for %s feature %s", v, s.Labels[c], crop.FeatureNames[j])
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.labels = append([]string(nil), s.Labels...)
	g.logPriors = append([]float64(nil), s.LogPriors...)
	g.means = append([]vector(nil), s.Means...)
	g.vars = append([]vector(nil), s.Vars...)
	if s.VarSmoothing > 0 {
		g.varSmoothing = s.VarSmoothing
	}
	g.version = s.Version
	g.trainedAt = s.TrainedAt
	return nil
}
