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
	"fmt"
	"math"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CentroidRecord is one centroid in the portable state representation.
// The short JSON keys "m" and "c" match the dict format of the Python
// tdigest ecosystem, so states exported there import here unchanged.
type CentroidRecord struct {
	Mean   float64 `json:"m"`
	Weight float64 `json:"c"`
}

// State is the portable representation of a digest: its centroid sequence
// in order. It is the only state that crosses process boundaries.
type State struct {
	Centroids []CentroidRecord `json:"centroids"`
}

// ExportState returns the digest's centroid sequence in sequence order.
func (d *Digest) ExportState() State {
	records := make([]CentroidRecord, len(d.centroids))
	for i, c := range d.centroids {
		records[i] = CentroidRecord{Mean: c.mean, Weight: c.weight}
	}
	return State{Centroids: records}
}

// ExportStateJSON returns the state serialized as JSON.
func (d *Digest) ExportStateJSON() ([]byte, error) {
	return json.Marshal(d.ExportState())
}

// FromState reconstructs a digest from a portable state with the default
// compression target. Weights are taken as already clustered; the imported
// sequence becomes the centroid sequence directly, with no re-clustering.
func FromState(state State) (*Digest, error) {
	return fromState(state, DefaultMaxCentroids, false)
}

// FromStateWithMax reconstructs a digest from a portable state and
// compresses it to at most maxCentroids centroids.
func FromStateWithMax(state State, maxCentroids int) (*Digest, error) {
	return fromState(state, maxCentroids, true)
}

// ImportStateJSON reconstructs a digest from a JSON-serialized state.
func ImportStateJSON(data []byte) (*Digest, error) {
	var state State
	if err := state.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return FromState(state)
}

func fromState(state State, maxCentroids int, bound bool) (*Digest, error) {
	if len(state.Centroids) == 0 {
		return nil, ErrEmptyState
	}
	d, err := NewWithMax(maxCentroids)
	if err != nil {
		return nil, err
	}

	centroids := make([]centroid, len(state.Centroids))
	var total float64
	for i, r := range state.Centroids {
		if math.IsNaN(r.Mean) || math.IsNaN(r.Weight) {
			return nil, ErrNaN
		}
		if math.IsInf(r.Mean, 0) || math.IsInf(r.Weight, 0) {
			return nil, ErrInfinity
		}
		if r.Weight <= 0 {
			return nil, ErrInvalidWeight
		}
		centroids[i] = centroid{mean: r.Mean, weight: r.Weight}
		total += r.Weight
	}
	slices.SortStableFunc(centroids, centroidSortFunc)

	d.centroids = centroids
	d.totalWeight = total
	if bound {
		d.Compress(maxCentroids)
	}
	return d, nil
}

// UnmarshalJSON validates the state schema: the "centroids" container and
// every record's "m" and "c" fields are required.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw struct {
		Centroids *[]jsoniter.RawMessage `json:"centroids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Centroids == nil {
		return fmt.Errorf(`%w: "centroids"`, ErrMissingField)
	}
	records := make([]CentroidRecord, len(*raw.Centroids))
	for i, msg := range *raw.Centroids {
		if err := records[i].UnmarshalJSON(msg); err != nil {
			return err
		}
	}
	s.Centroids = records
	return nil
}

// UnmarshalJSON rejects records without both the "m" and "c" keys.
func (r *CentroidRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mean   *float64 `json:"m"`
		Weight *float64 `json:"c"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Mean == nil {
		return fmt.Errorf(`%w: centroid key "m"`, ErrMissingField)
	}
	if raw.Weight == nil {
		return fmt.Errorf(`%w: centroid key "c"`, ErrMissingField)
	}
	r.Mean = *raw.Mean
	r.Weight = *raw.Weight
	return nil
}
