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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest_Quantile(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().Quantile(0.5)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		d, err := FromValues([]float64{1, 2, 3})
		assert.NoError(t, err)

		_, err = d.Quantile(-0.1)
		assert.ErrorIs(t, err, ErrInvalidQuantile)

		_, err = d.Quantile(1.1)
		assert.ErrorIs(t, err, ErrInvalidQuantile)

		_, err = d.Quantile(math.NaN())
		assert.ErrorIs(t, err, ErrInvalidQuantile)
	})

	t.Run("One To Five", func(t *testing.T) {
		d, err := FromValues([]float64{1, 2, 3, 4, 5})
		assert.NoError(t, err)

		q, err := d.Quantile(0.5)
		assert.NoError(t, err)
		assert.Equal(t, 3.0, q)

		q, err = d.Quantile(0)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, q)

		q, err = d.Quantile(1)
		assert.NoError(t, err)
		assert.Equal(t, 5.0, q)
	})

	t.Run("Single Centroid Returns Its Mean", func(t *testing.T) {
		d, err := FromValues([]float64{42})
		assert.NoError(t, err)

		for _, q := range []float64{0, 0.25, 0.5, 0.75, 1} {
			v, err := d.Quantile(q)
			assert.NoError(t, err)
			assert.Equal(t, 42.0, v)
		}
	})

	t.Run("Boundaries Return Extreme Centroid Means", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		lo, err := d.Quantile(0)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, lo)

		hi, err := d.Quantile(1)
		assert.NoError(t, err)
		assert.Equal(t, 100.0, hi)
	})

	t.Run("Median Of Uniform Distribution", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		q, err := d.Quantile(0.5)
		assert.NoError(t, err)
		assert.InDelta(t, 50.5, q, 1e-9)
	})

	t.Run("Non-Decreasing In Q", func(t *testing.T) {
		d, err := FromValuesWithMax(rangeValues(1, 1000), 20)
		assert.NoError(t, err)

		prev := math.Inf(-1)
		for q := 0.0; q <= 1.0; q += 0.01 {
			v, err := d.Quantile(q)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, v, prev, "q=%v", q)
			prev = v
		}
	})

	t.Run("Merged Halves", func(t *testing.T) {
		a, err := FromValues(rangeValues(1, 50))
		assert.NoError(t, err)
		b, err := FromValues(rangeValues(51, 100))
		assert.NoError(t, err)

		merged := a.Merge(b)
		assert.Equal(t, uint64(100), merged.NValues())

		q, err := merged.Quantile(0.5)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, q, 50.0)
		assert.LessOrEqual(t, q, 51.0)
	})
}

func TestDigest_Percentile(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().Percentile(50)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Out Of Range", func(t *testing.T) {
		d, err := FromValues([]float64{1, 2, 3})
		assert.NoError(t, err)

		_, err = d.Percentile(-1)
		assert.ErrorIs(t, err, ErrInvalidPercentile)

		_, err = d.Percentile(100.5)
		assert.ErrorIs(t, err, ErrInvalidPercentile)
	})

	t.Run("Matches Quantile", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		p, err := d.Percentile(50)
		assert.NoError(t, err)
		q, err := d.Quantile(0.5)
		assert.NoError(t, err)
		assert.Equal(t, q, p)

		p, err = d.Percentile(0)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, p)

		p, err = d.Percentile(100)
		assert.NoError(t, err)
		assert.Equal(t, 100.0, p)
	})
}

func TestDigest_MedianIQR(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().Median()
		assert.ErrorIs(t, err, ErrEmpty)
		_, err = New().IQR()
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Uniform Values", func(t *testing.T) {
		d, err := FromValues(rangeValues(2, 198))
		assert.NoError(t, err)

		med, err := d.Median()
		assert.NoError(t, err)
		assert.InDelta(t, 100.0, med, 1.0)

		iqr, err := d.IQR()
		assert.NoError(t, err)
		assert.InDelta(t, 98.0, iqr, 2.0)
	})
}

func TestDigest_Rank(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().Rank(0.5)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("NaN", func(t *testing.T) {
		d, err := FromValues([]float64{1})
		assert.NoError(t, err)
		_, err = d.Rank(math.NaN())
		assert.ErrorIs(t, err, ErrNaN)
	})

	t.Run("Below Minimum And Above Maximum", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		r, err := d.Rank(0.5)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, r)

		r, err = d.Rank(101)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, r)
	})

	t.Run("Single Value", func(t *testing.T) {
		d, err := FromValues([]float64{5})
		assert.NoError(t, err)

		r, err := d.Rank(5)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, r)

		r, err = d.Rank(4)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, r)

		r, err = d.Rank(6)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, r)
	})

	t.Run("Two Values", func(t *testing.T) {
		d, err := FromValues([]float64{1, 2})
		assert.NoError(t, err)

		r, err := d.Rank(0.99)
		assert.NoError(t, err)
		assert.Equal(t, 0.0, r)

		r, err = d.Rank(1)
		assert.NoError(t, err)
		assert.Equal(t, 0.25, r)

		r, err = d.Rank(1.5)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, r)

		r, err = d.Rank(2)
		assert.NoError(t, err)
		assert.Equal(t, 0.75, r)

		r, err = d.Rank(2.01)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, r)
	})

	t.Run("Uniform Distribution", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		r, err := d.Rank(50)
		assert.NoError(t, err)
		assert.InDelta(t, 0.495, r, 0.005)

		r, err = d.Rank(25)
		assert.NoError(t, err)
		assert.InDelta(t, 0.245, r, 0.005)

		r, err = d.Rank(75)
		assert.NoError(t, err)
		assert.InDelta(t, 0.745, r, 0.005)
	})

	t.Run("Monotonic Non-Decreasing", func(t *testing.T) {
		d, err := FromValuesWithMax(rangeValues(1, 1000), 20)
		assert.NoError(t, err)

		prev := -1.0
		for x := -10.0; x <= 1010; x += 7 {
			r, err := d.Rank(x)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, r, prev, "x=%v", x)
			prev = r
		}
	})

	t.Run("CDF Alias", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		r, err := d.Rank(30)
		assert.NoError(t, err)
		c, err := d.CDF(30)
		assert.NoError(t, err)
		assert.Equal(t, r, c)
	})

	t.Run("Inverse Of Quantile", func(t *testing.T) {
		d, err := FromValuesWithMax(rangeValues(1, 1000), 50)
		assert.NoError(t, err)

		for _, q := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
			v, err := d.Quantile(q)
			assert.NoError(t, err)
			r, err := d.Rank(v)
			assert.NoError(t, err)
			assert.InDelta(t, q, r, 0.01, "q=%v", q)
		}
	})
}

func TestDigest_Probability(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().Probability(1, 2)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Invalid Range", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		_, err = d.Probability(2, 1)
		assert.ErrorIs(t, err, ErrInvalidProbRange)

		_, err = d.Probability(math.NaN(), 1)
		assert.ErrorIs(t, err, ErrNaN)
	})

	t.Run("Uniform Window", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		p, err := d.Probability(80, 100)
		assert.NoError(t, err)
		assert.InDelta(t, 0.2, p, 0.01)

		p, err = d.Probability(-10, 200)
		assert.NoError(t, err)
		assert.Equal(t, 1.0, p)
	})
}

func TestDigest_TrimmedMean(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := New().TrimmedMean(0.01, 0.99)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Invalid Range", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		_, err = d.TrimmedMean(0.9, 0.1)
		assert.ErrorIs(t, err, ErrInvalidTrimRange)

		_, err = d.TrimmedMean(-0.1, 0.5)
		assert.ErrorIs(t, err, ErrInvalidTrimRange)

		_, err = d.TrimmedMean(0.5, 1.1)
		assert.ErrorIs(t, err, ErrInvalidTrimRange)

		_, err = d.TrimmedMean(0.5, 0.5)
		assert.ErrorIs(t, err, ErrInvalidTrimRange)

		_, err = d.TrimmedMean(math.NaN(), 0.5)
		assert.ErrorIs(t, err, ErrInvalidTrimRange)
	})

	t.Run("Full Window Equals Mean", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		tm, err := d.TrimmedMean(0, 1)
		assert.NoError(t, err)
		mean, err := d.Mean()
		assert.NoError(t, err)
		assert.InDelta(t, mean, tm, 1e-9)
	})

	t.Run("Full Window After Compression", func(t *testing.T) {
		d, err := FromValuesWithMax(rangeValues(1, 100), 5)
		assert.NoError(t, err)

		tm, err := d.TrimmedMean(0, 1)
		assert.NoError(t, err)
		assert.InDelta(t, 50.5, tm, 1e-9)
	})

	t.Run("Trims Outlier", func(t *testing.T) {
		values := rangeValues(1, 100)
		values[99] = 10000

		d, err := FromValues(values)
		assert.NoError(t, err)

		tm, err := d.TrimmedMean(0.01, 0.99)
		assert.NoError(t, err)
		assert.InDelta(t, 50.5, tm, 0.5)
	})

	t.Run("Central Window", func(t *testing.T) {
		d, err := FromValues(rangeValues(1, 100))
		assert.NoError(t, err)

		tm, err := d.TrimmedMean(0.25, 0.75)
		assert.NoError(t, err)
		assert.InDelta(t, 50.5, tm, 1.0)
	})
}
