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

import "math"

// Quantile estimates the value at cumulative probability q in [0, 1].
// Each centroid's mean is taken as the value at its cumulative-weight
// midpoint and the estimate interpolates linearly between adjacent
// midpoints. q=0 returns the smallest centroid mean and q=1 the largest.
func (d *Digest) Quantile(q float64) (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	if !(q >= 0 && q <= 1) {
		return 0, ErrInvalidQuantile
	}
	return d.quantileAt(q), nil
}

// Percentile is Quantile(p/100) for p in [0, 100].
func (d *Digest) Percentile(p float64) (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	if !(p >= 0 && p <= 100) {
		return 0, ErrInvalidPercentile
	}
	return d.quantileAt(p / 100), nil
}

// Median is Quantile(0.5).
func (d *Digest) Median() (float64, error) {
	return d.Quantile(0.5)
}

// IQR returns the interquartile range, Quantile(0.75) - Quantile(0.25).
func (d *Digest) IQR() (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	return d.quantileAt(0.75) - d.quantileAt(0.25), nil
}

func (d *Digest) quantileAt(q float64) float64 {
	cs := d.centroids
	if len(cs) == 1 {
		return cs[0].mean
	}
	if q == 0 {
		return cs[0].mean
	}
	if q == 1 {
		return cs[len(cs)-1].mean
	}

	target := q * d.totalWeight
	var cum float64
	for i := 0; i < len(cs)-1; i++ {
		mid := cum + cs[i].weight/2
		cum += cs[i].weight
		nextMid := cum + cs[i+1].weight/2
		if target < mid {
			// only reachable for i == 0: below the first midpoint
			return cs[i].mean
		}
		if target <= nextMid {
			if nextMid == mid {
				return cs[i].mean
			}
			frac := (target - mid) / (nextMid - mid)
			return cs[i].mean + frac*(cs[i+1].mean-cs[i].mean)
		}
	}
	return cs[len(cs)-1].mean
}

// Rank estimates the fraction of ingested values at or below the given
// value, using the same midpoint convention as Quantile. It is monotonic
// non-decreasing, 0 below the smallest centroid mean and 1 above the
// largest.
func (d *Digest) Rank(value float64) (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	if math.IsNaN(value) {
		return 0, ErrNaN
	}
	cs := d.centroids
	if value < cs[0].mean {
		return 0, nil
	}
	if value > cs[len(cs)-1].mean {
		return 1, nil
	}
	if len(cs) == 1 {
		return 0.5, nil
	}

	var cum float64
	for i, c := range cs {
		if value < c.mean {
			// value sits between the previous centroid's mean and this one's
			prev := cs[i-1]
			prevMid := cum - prev.weight/2
			thisMid := cum + c.weight/2
			frac := (value - prev.mean) / (c.mean - prev.mean)
			return (prevMid + frac*(thisMid-prevMid)) / d.totalWeight, nil
		}
		cum += c.weight
	}
	// value equals the largest centroid mean
	return (d.totalWeight - cs[len(cs)-1].weight/2) / d.totalWeight, nil
}

// CDF is an alias of Rank.
func (d *Digest) CDF(value float64) (float64, error) {
	return d.Rank(value)
}

// Probability estimates the fraction of ingested values in [a, b].
func (d *Digest) Probability(a, b float64) (float64, error) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, ErrNaN
	}
	if a > b {
		return 0, ErrInvalidProbRange
	}
	upper, err := d.Rank(b)
	if err != nil {
		return 0, err
	}
	lower, err := d.Rank(a)
	if err != nil {
		return 0, err
	}
	return upper - lower, nil
}

// TrimmedMean returns the weighted mean of the values between the q1 and q2
// quantiles. Centroids partially covered by the window contribute
// proportionally to their overlap.
func (d *Digest) TrimmedMean(q1, q2 float64) (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmpty
	}
	if !(q1 >= 0) || !(q2 <= 1) || !(q1 < q2) {
		return 0, ErrInvalidTrimRange
	}

	lo := q1 * d.totalWeight
	hi := q2 * d.totalWeight

	var cum, sum, weight float64
	for _, c := range d.centroids {
		cStart := cum
		cEnd := cum + c.weight
		cum = cEnd

		if cEnd <= lo {
			continue
		}
		if cStart >= hi {
			break
		}

		overlap := math.Min(cEnd, hi) - math.Max(cStart, lo)
		if overlap <= 0 {
			continue
		}
		sum += overlap * c.mean
		weight += overlap
	}

	if weight == 0 {
		return 0, ErrEmptyTrimWindow
	}
	return sum / weight, nil
}
