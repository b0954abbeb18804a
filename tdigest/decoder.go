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
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"slices"

	"github.com/fastdigest/fastdigest-go/internal"
)

var (
	errSketchTypeMismatch    = errors.New("sketch type mismatch")
	errSerialVersionMismatch = errors.New("serial version mismatch")
	errPreambleMismatch      = errors.New("preamble longs mismatch")
	errInsufficientData      = errors.New("insufficient data for deserialization")
)

// Decoder decodes a Digest from a stream.
type Decoder struct{}

// NewDecoder creates and returns a new Decoder.
func NewDecoder() Decoder {
	return Decoder{}
}

// Decode reads a digest in the binary format from r.
func (dec *Decoder) Decode(r io.Reader) (*Digest, error) {
	var preambleLongs uint8
	if err := binary.Read(r, binary.LittleEndian, &preambleLongs); err != nil {
		return nil, err
	}

	var serialVer uint8
	if err := binary.Read(r, binary.LittleEndian, &serialVer); err != nil {
		return nil, err
	}

	var skType uint8
	if err := binary.Read(r, binary.LittleEndian, &skType); err != nil {
		return nil, err
	}
	if skType != uint8(internal.FamilyEnum.TDigest.Id) {
		return nil, errSketchTypeMismatch
	}
	if serialVer != serialVersion {
		return nil, errSerialVersionMismatch
	}

	var flagsByte uint8
	if err := binary.Read(r, binary.LittleEndian, &flagsByte); err != nil {
		return nil, err
	}
	isEmpty := flagsByte&(1<<serializationFlagIsEmpty) != 0
	isSingleValue := flagsByte&(1<<serializationFlagIsSingleValue) != 0

	expectedPreambleLongs := preambleLongsMultiple
	if isEmpty || isSingleValue {
		expectedPreambleLongs = preambleLongsEmptyOrSingle
	}
	if preambleLongs != expectedPreambleLongs {
		return nil, errPreambleMismatch
	}

	var maxCentroids uint32
	if err := binary.Read(r, binary.LittleEndian, &maxCentroids); err != nil {
		return nil, err
	}

	if isEmpty {
		return NewWithMax(int(maxCentroids))
	}

	if isSingleValue {
		var valueBits uint64
		if err := binary.Read(r, binary.LittleEndian, &valueBits); err != nil {
			return nil, err
		}
		value := math.Float64frombits(valueBits)
		if math.IsNaN(value) {
			return nil, ErrNaN
		}
		if math.IsInf(value, 0) {
			return nil, ErrInfinity
		}
		d, err := NewWithMax(int(maxCentroids))
		if err != nil {
			return nil, err
		}
		d.centroids = []centroid{{mean: value, weight: 1}}
		d.totalWeight = 1
		return d, nil
	}

	var numCentroids uint32
	if err := binary.Read(r, binary.LittleEndian, &numCentroids); err != nil {
		return nil, err
	}
	if numCentroids == 0 {
		return nil, ErrEmptyState
	}

	var unused uint32
	if err := binary.Read(r, binary.LittleEndian, &unused); err != nil {
		return nil, err
	}

	centroids := make([]centroid, numCentroids)
	var total float64
	for i := range centroids {
		var meanBits, weightBits uint64
		if err := binary.Read(r, binary.LittleEndian, &meanBits); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &weightBits); err != nil {
			return nil, err
		}
		mean := math.Float64frombits(meanBits)
		weight := math.Float64frombits(weightBits)
		if math.IsNaN(mean) || math.IsNaN(weight) {
			return nil, ErrNaN
		}
		if math.IsInf(mean, 0) || math.IsInf(weight, 0) {
			return nil, ErrInfinity
		}
		if weight <= 0 {
			return nil, ErrInvalidWeight
		}
		centroids[i] = centroid{mean: mean, weight: weight}
		total += weight
	}
	slices.SortStableFunc(centroids, centroidSortFunc)

	d, err := NewWithMax(int(maxCentroids))
	if err != nil {
		return nil, err
	}
	d.centroids = centroids
	d.totalWeight = total
	return d, nil
}

// DecodeDigest decodes a digest from a byte slice.
func DecodeDigest(data []byte) (*Digest, error) {
	if len(data) < 8 {
		return nil, errInsufficientData
	}
	preambleLongs := data[0]
	expectedSize := int(preambleLongs) * 8
	if len(data) < expectedSize {
		return nil, errInsufficientData
	}
	if preambleLongs == preambleLongsMultiple {
		numCentroids := int(binary.LittleEndian.Uint32(data[8:]))
		if len(data) < expectedSize+16*numCentroids {
			return nil, errInsufficientData
		}
	}
	dec := NewDecoder()
	return dec.Decode(bytes.NewReader(data))
}
