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
	"encoding/binary"
	"io"
	"math"

	"github.com/fastdigest/fastdigest-go/internal"
)

const (
	preambleLongsEmptyOrSingle uint8 = 1
	preambleLongsMultiple      uint8 = 2
	serialVersion              uint8 = 1
)

const (
	serializationFlagIsEmpty uint8 = iota
	serializationFlagIsSingleValue
)

// Encoder encodes a Digest to a stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder writing to w.
func NewEncoder(w io.Writer) Encoder {
	return Encoder{w: w}
}

// Encode writes the digest in the binary format.
func (enc *Encoder) Encode(sketch *Digest) error {
	buf, err := EncodeDigest(sketch)
	if err != nil {
		return err
	}
	_, err = enc.w.Write(buf)
	return err
}

// SerializedSizeBytes computes the serialized size in bytes of the digest.
func (d *Digest) SerializedSizeBytes() int {
	size := int(d.preambleLongs()) * 8
	if d.IsEmpty() {
		return size
	}
	if d.isSingleValue() {
		return size + 8 // float64
	}
	return size + 16*len(d.centroids) // each centroid is two float64
}

// EncodeDigest encodes a Digest to bytes.
func EncodeDigest(sketch *Digest) ([]byte, error) {
	offset := 0
	buf := make([]byte, sketch.SerializedSizeBytes())

	buf[offset] = sketch.preambleLongs()
	offset++

	buf[offset] = serialVersion
	offset++

	buf[offset] = uint8(internal.FamilyEnum.TDigest.Id)
	offset++

	var flagsByte byte
	if sketch.IsEmpty() {
		flagsByte |= 1 << serializationFlagIsEmpty
	}
	if sketch.isSingleValue() {
		flagsByte |= 1 << serializationFlagIsSingleValue
	}
	buf[offset] = flagsByte
	offset++

	binary.LittleEndian.PutUint32(buf[offset:], uint32(sketch.maxCentroids))
	offset += 4

	if sketch.IsEmpty() {
		return buf, nil
	}

	if sketch.isSingleValue() {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(sketch.centroids[0].mean))
		return buf, nil
	}

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(sketch.centroids)))
	offset += 4

	// 4 bytes unused
	offset += 4

	for _, c := range sketch.centroids {
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(c.mean))
		offset += 8
		binary.LittleEndian.PutUint64(buf[offset:], math.Float64bits(c.weight))
		offset += 8
	}

	return buf, nil
}

func (d *Digest) preambleLongs() uint8 {
	if d.IsEmpty() || d.isSingleValue() {
		return preambleLongsEmptyOrSingle
	}
	return preambleLongsMultiple
}

func (d *Digest) isSingleValue() bool {
	return len(d.centroids) == 1 && d.centroids[0].weight == 1
}
