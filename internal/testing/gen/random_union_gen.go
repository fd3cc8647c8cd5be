// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gen generates random, valid union arrays for tests.
package gen

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
	"github.com/columnar-dev/tagunion/union"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Names and Codes describe the children of every generated union: an
// int64, a float64 and a string child, selected by non-positional codes.
var (
	Names = []string{"ints", "floats", "strs"}
	Codes = []tagunion.TypeCode{3, 5, 9}
)

// RandomUnionGenerator builds random union arrays from a seed, so a failing
// test can be replayed.
type RandomUnionGenerator struct {
	seed  uint64
	extra uint64
	mem   memory.Allocator
}

// NewRandomUnionGenerator constructs a new generator with the requested seed.
func NewRandomUnionGenerator(seed uint64, mem memory.Allocator) RandomUnionGenerator {
	return RandomUnionGenerator{seed: seed, mem: mem}
}

func (r *RandomUnionGenerator) source() rand.Source {
	r.extra++
	return rand.NewSource(r.seed + r.extra)
}

// TypeCodes draws size discriminants uniformly from Codes.
func (r *RandomUnionGenerator) TypeCodes(size int) []tagunion.TypeCode {
	weights := make([]float64, len(Codes))
	for i := range weights {
		weights[i] = 1
	}
	dist := distuv.NewCategorical(weights, r.source())

	out := make([]tagunion.TypeCode, size)
	for i := range out {
		out[i] = Codes[int(dist.Rand())]
	}
	return out
}

// validity returns size flags, each false with probability nullProb.
func (r *RandomUnionGenerator) validity(size int, nullProb float64) []bool {
	dist := distuv.Bernoulli{P: 1 - nullProb, Src: r.source()}
	valid := make([]bool, size)
	for i := range valid {
		valid[i] = dist.Rand() != 0
	}
	return valid
}

// Child returns a random array of size values for the child at position pos.
func (r *RandomUnionGenerator) Child(pos, size int, nullProb float64) arrow.Array {
	valid := r.validity(size, nullProb)
	dist := rand.New(r.source())

	switch pos {
	case 0:
		bldr := array.NewInt64Builder(r.mem)
		defer bldr.Release()
		vals := make([]int64, size)
		for i := range vals {
			vals[i] = dist.Int63n(1000) - 500
		}
		bldr.AppendValues(vals, valid)
		return bldr.NewArray()
	case 1:
		bldr := array.NewFloat64Builder(r.mem)
		defer bldr.Release()
		vals := make([]float64, size)
		for i := range vals {
			vals[i] = dist.NormFloat64()
		}
		bldr.AppendValues(vals, valid)
		return bldr.NewArray()
	default:
		bldr := array.NewStringBuilder(r.mem)
		defer bldr.Release()
		buf := make([]byte, 8)
		for i := 0; i < size; i++ {
			if !valid[i] {
				bldr.AppendNull()
				continue
			}
			out := buf[:dist.Intn(len(buf)+1)]
			for j := range out {
				out[j] = byte(dist.Intn('z'-'a'+1) + 'a')
			}
			bldr.Append(string(out))
		}
		return bldr.NewArray()
	}
}

func (r *RandomUnionGenerator) typeIDsArray(codes []tagunion.TypeCode) arrow.Array {
	bldr := array.NewInt8Builder(r.mem)
	defer bldr.Release()
	bldr.AppendValues(codes, nil)
	return bldr.NewArray()
}

// Dense returns a valid dense union of size elements. Every child holds
// exactly the values referenced by the discriminants, in order.
func (r *RandomUnionGenerator) Dense(size int, nullProb float64) *union.Array {
	codes := r.TypeCodes(size)
	typeIDs := r.typeIDsArray(codes)
	defer typeIDs.Release()

	pos := make(map[tagunion.TypeCode]int, len(Codes))
	for i, c := range Codes {
		pos[c] = i
	}

	counts := make([]int, len(Codes))
	offsets := make([]int32, size)
	for i, c := range codes {
		offsets[i] = int32(counts[pos[c]])
		counts[pos[c]]++
	}

	obldr := array.NewInt32Builder(r.mem)
	defer obldr.Release()
	obldr.AppendValues(offsets, nil)
	offsetArr := obldr.NewArray()
	defer offsetArr.Release()

	children := make([]union.Child, len(Codes))
	for i := range children {
		children[i] = r.Child(i, counts[i], nullProb)
		defer children[i].Release()
	}

	arr, err := union.MakeDense(typeIDs, offsetArr, children,
		union.WithFieldNames(Names...), union.WithTypeCodes(Codes...))
	if err != nil {
		panic(err)
	}
	return arr
}

// Sparse returns a valid sparse union of size elements. Unselected child
// slots hold random values too, which must not affect equality.
func (r *RandomUnionGenerator) Sparse(size int, nullProb float64) *union.Array {
	typeIDs := r.typeIDsArray(r.TypeCodes(size))
	defer typeIDs.Release()

	children := make([]union.Child, len(Codes))
	for i := range children {
		children[i] = r.Child(i, size, nullProb)
		defer children[i].Release()
	}

	arr, err := union.MakeSparse(typeIDs, children,
		union.WithFieldNames(Names...), union.WithTypeCodes(Codes...))
	if err != nil {
		panic(err)
	}
	return arr
}
