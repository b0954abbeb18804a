/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tdigest

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

const (
	// DefaultMaxCentroids is the default compression target of a digest.
	DefaultMaxCentroids = 1000

	// minMaxCentroids is the smallest allowed compression target; a digest
	// never compresses below min(n, 3) centroids anyway.
	minMaxCentroids = 3
)

var (
	ErrEmpty               = errors.New("operation is undefined for an empty digest")
	ErrEmptyValues         = errors.New("values list cannot be empty")
	ErrNaN                 = errors.New("operation is undefined for NaN")
	ErrInfinity            = errors.New("operation is undefined for infinity")
	ErrInvalidMaxCentroids = errors.New("max centroids must be at least 3")
	ErrInvalidQuantile     = errors.New("q must be between 0 and 1 inclusive")
	ErrInvalidPercentile   = errors.New("p must be between 0 and 100 inclusive")
	ErrInvalidTrimRange    = errors.New("q1 must be at least 0, q2 at most 1, and q1 less than q2")
	ErrEmptyTrimWindow     = errors.New("no data in the trimmed range")
	ErrInvalidProbRange    = errors.New("a must not be greater than b")
	ErrEmptyState          = errors.New("centroids list cannot be empty")
	ErrInvalidWeight       = errors.New("centroid weight must be greater than 0")
	ErrMissingField        = errors.New("missing required field")
)

// Number covers the value types a digest can ingest in bulk.
type Number interface {
	constraints.Integer | constraints.Float
}

// centroid is a weighted point summarizing one or more original values.
type centroid struct {
	mean   float64
	weight float64
}

func (c *centroid) add(other centroid) {
	c.weight += other.weight
	c.mean += (other.mean - c.mean) * other.weight / c.weight
}

func centroidSortFunc(c1, c2 centroid) int {
	if c1.mean < c2.mean {
		return -1
	} else if c1.mean > c2.mean {
		return 1
	}
	return 0
}

// Digest is a t-Digest: an ordered sequence of centroids approximating the
// distribution of the ingested values, bounded in size by a compression
// target while staying accurate near the extreme quantiles.
// This implementation is based on the paper:
// Ted Dunning, Otmar Ertl. "Extremely Accurate Quantiles Using t-Digests"
// and uses the inverse-trigonometric k_1 scale function described there.
//
// A Digest is owned by a single writer; it provides no internal locking.
type Digest struct {
	centroids    []centroid
	totalWeight  float64
	maxCentroids int
}

// New creates an empty Digest with the default compression target.
func New() *Digest {
	return &Digest{maxCentroids: DefaultMaxCentroids}
}

// NewWithMax creates an empty Digest with the given compression target.
func NewWithMax(maxCentroids int) (*Digest, error) {
	if maxCentroids < minMaxCentroids {
		return nil, ErrInvalidMaxCentroids
	}
	return &Digest{maxCentroids: maxCentroids}, nil
}

// FromValues builds a Digest from a non-empty list of values with the
// default compression target.
func FromValues[T Number](values []T) (*Digest, error) {
	return FromValuesWithMax(values, DefaultMaxCentroids)
}

// FromValuesWithMax builds a Digest from a non-empty list of values, bounded
// to at most maxCentroids centroids.
func FromValuesWithMax[T Number](values []T, maxCentroids int) (*Digest, error) {
	if len(values) == 0 {
		return nil, ErrEmptyValues
	}
	d, err := NewWithMax(maxCentroids)
	if err != nil {
		return nil, err
	}
	converted := make([]float64, len(values))
	for i, v := range values {
		converted[i] = float64(v)
	}
	if err := d.BatchUpdate(converted); err != nil {
		return nil, err
	}
	return d, nil
}

// IsEmpty returns true if the digest has not seen any data.
func (d *Digest) IsEmpty() bool {
	return len(d.centroids) == 0
}

// NValues returns the number of ingested values, i.e. the total centroid
// weight rounded to the nearest integer.
func (d *Digest) NValues() uint64 {
	return uint64(math.Round(d.totalWeight))
}

// NCentroids returns the number of centroids.
func (d *Digest) NCentroids() int {
	return len(d.centroids)
}

// MaxCentroids returns the compression target carried by the digest.
func (d *Digest) MaxCentroids() int {
	return d.maxCentroids
}

// SetMaxCentroids replaces the compression target. The digest is re-bounded
// on the next mutating operation, not immediately.
func (d *Digest) SetMaxCentroids(maxCentroids int) error {
	if maxCentroids < minMaxCentroids {
		return ErrInvalidMaxCentroids
	}
	d.maxCentroids = maxCentroids
	return nil
}

// Update adds a single value to the digest.
func (d *Digest) Update(value float64) error {
	return d.BatchUpdate([]float64{value})
}

// BatchUpdate adds a list of values to the digest. An empty list is a no-op.
// The batch is validated up front; on error the digest is unchanged.
func (d *Digest) BatchUpdate(values []float64) error {
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		if math.IsNaN(v) {
			return ErrNaN
		}
		if math.IsInf(v, 0) {
			return ErrInfinity
		}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	batch := make([]centroid, len(sorted))
	for i, v := range sorted {
		batch[i] = centroid{mean: v, weight: 1}
	}
	d.mergeCentroids(batch, float64(len(batch)))
	return nil
}

// Merge combines two digests into a new one whose total weight is the sum of
// both. The result carries the larger of the two compression targets. Both
// inputs are left untouched.
func (d *Digest) Merge(other *Digest) *Digest {
	out := d.Copy()
	if other != nil && other.maxCentroids > out.maxCentroids {
		out.maxCentroids = other.maxCentroids
	}
	out.MergeInPlace(other)
	return out
}

// MergeInPlace folds another digest into this one, keeping this digest's
// compression target. The other digest is left untouched.
func (d *Digest) MergeInPlace(other *Digest) {
	if other == nil || other.IsEmpty() {
		d.Compress(d.maxCentroids)
		return
	}
	d.mergeCentroids(other.centroids, other.totalWeight)
}

// Compress re-clusters the digest in place to at most maxCentroids
// centroids, never going below min(n, 3). Values below the floor are treated
// as the floor itself.
func (d *Digest) Compress(maxCentroids int) {
	floor := d.centroidFloor()
	target := maxCentroids
	if target < floor {
		target = floor
	}
	// Each pass merges adjacent clusters permitted by the scale function.
	// If a pass stalls above the target, halve the scale so wider clusters
	// become admissible; the floor guard inside the sweep keeps the count
	// from collapsing below min(n, 3).
	compression := float64(target)
	for len(d.centroids) > target {
		before := len(d.centroids)
		d.centroids = clusterCentroids(d.centroids, d.totalWeight, compression, floor)
		if len(d.centroids) == before {
			compression /= 2
		}
	}
}

// Copy returns a deep copy sharing no state with the original.
func (d *Digest) Copy() *Digest {
	return &Digest{
		centroids:    slices.Clone(d.centroids),
		totalWeight:  d.totalWeight,
		maxCentroids: d.maxCentroids,
	}
}

// Min returns the smallest centroid mean.
func (d *Digest) Min() (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	return d.centroids[0].mean, nil
}

// Max returns the largest centroid mean.
func (d *Digest) Max() (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	return d.centroids[len(d.centroids)-1].mean, nil
}

// Mean returns the weighted mean of all ingested values.
func (d *Digest) Mean() (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	var sum float64
	for _, c := range d.centroids {
		sum += c.mean * c.weight
	}
	return sum / d.totalWeight, nil
}

// String returns a human-readable summary of the digest.
func (d *Digest) String() string {
	return fmt.Sprintf("Digest(n_values=%d, n_centroids=%d)", d.NValues(), d.NCentroids())
}

// mergeCentroids folds an ordered batch of centroids carrying the given
// total weight into the digest and re-bounds the result.
func (d *Digest) mergeCentroids(batch []centroid, weight float64) {
	merged := make([]centroid, 0, len(d.centroids)+len(batch))
	merged = append(merged, d.centroids...)
	merged = append(merged, batch...)
	slices.SortStableFunc(merged, centroidSortFunc)
	d.centroids = merged
	d.totalWeight += weight
	d.Compress(d.maxCentroids)
}

// centroidFloor is the smallest centroid count compression may produce:
// min(n, 3) for n ingested values.
func (d *Digest) centroidFloor() int {
	n := int(math.Round(d.totalWeight))
	if n < minMaxCentroids {
		return n
	}
	return minMaxCentroids
}

// scaleFunction is the k_1 scale from the t-digest paper,
// k(q) = compression/(2*pi) * asin(2q-1). Its slope is steepest at q=0 and
// q=1, so clusters admitted under a unit k-width are smallest at the tails
// and largest around the median.
type scaleFunction struct {
	compression float64
}

func (s scaleFunction) k(q float64) float64 {
	// guard against cumulative-weight rounding pushing q outside [0,1]
	q = math.Min(math.Max(q, 0), 1)
	return s.compression / (2 * math.Pi) * math.Asin(2*q-1)
}

// clusterCentroids runs one clustering pass over an ordered centroid run.
// The current cluster absorbs its successor only while the cluster spans at
// most one unit of the k_1 scale and at least floor clusters remain
// reachable from the unprocessed tail. The pass is deterministic and keeps
// the run's order, so equal means never reorder.
func clusterCentroids(run []centroid, totalWeight, compression float64, floor int) []centroid {
	if len(run) <= 1 {
		return run
	}
	sf := scaleFunction{compression: compression}
	out := make([]centroid, 0, len(run))
	cur := run[0]
	var weightSoFar float64
	for i := 1; i < len(run); i++ {
		next := run[i]
		remaining := len(run) - i - 1
		reachable := len(out) + 1 + remaining
		q0 := weightSoFar / totalWeight
		q2 := (weightSoFar + cur.weight + next.weight) / totalWeight
		if reachable >= floor && sf.k(q2)-sf.k(q0) <= 1 {
			cur.add(next)
		} else {
			out = append(out, cur)
			weightSoFar += cur.weight
			cur = next
		}
	}
	return append(out, cur)
}
