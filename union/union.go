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

package union

import (
	"sync/atomic"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
	"github.com/columnar-dev/tagunion/internal/debug"
)

// Array is an immutable union array. It owns no validity bitmap: whether a
// slot is null is decided by the selected child at the resolved index.
//
// An Array shares its schema, buffers and children with every slice taken
// from it, so none of them may be mutated once the array exists.
type Array struct {
	refCount int64

	schema *tagunion.Schema
	length int
	offset int

	typeIDs      *memory.Buffer
	valueOffsets *memory.Buffer
	children     []Child

	// views over the whole buffers, not adjusted for offset
	typecodes []tagunion.TypeCode
	offsets   []int32
}

// NewDense returns a dense union of length elements starting at offset in
// the typeIDs and valueOffsets buffers.
//
// Only the structural check is run; call ValidateFull to check the
// discriminants and value offsets themselves.
func NewDense(schema *tagunion.Schema, length int, children []Child, typeIDs, valueOffsets *memory.Buffer, offset int) (*Array, error) {
	if schema.Mode() != tagunion.DenseMode {
		return nil, errorf("NewDense called with a %s schema", schema.Mode())
	}
	return newArray(schema, length, children, typeIDs, valueOffsets, offset)
}

// NewSparse returns a sparse union of length elements starting at offset in
// the typeIDs buffer and in every child.
//
// Only the structural check is run; call ValidateFull to check the
// discriminants and child lengths.
func NewSparse(schema *tagunion.Schema, length int, children []Child, typeIDs *memory.Buffer, offset int) (*Array, error) {
	if schema.Mode() != tagunion.SparseMode {
		return nil, errorf("NewSparse called with a %s schema", schema.Mode())
	}
	return newArray(schema, length, children, typeIDs, nil, offset)
}

func newArray(schema *tagunion.Schema, length int, children []Child, typeIDs, valueOffsets *memory.Buffer, offset int) (*Array, error) {
	a := &Array{
		refCount:     1,
		schema:       schema,
		length:       length,
		offset:       offset,
		typeIDs:      typeIDs,
		valueOffsets: valueOffsets,
		children:     append([]Child(nil), children...),
	}
	if typeIDs != nil {
		a.typecodes = arrow.Int8Traits.CastFromBytes(typeIDs.Bytes())
	}
	if valueOffsets != nil {
		a.offsets = arrow.Int32Traits.CastFromBytes(valueOffsets.Bytes())
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	if typeIDs != nil {
		typeIDs.Retain()
	}
	if valueOffsets != nil {
		valueOffsets.Retain()
	}
	for _, c := range a.children {
		c.Retain()
	}
	return a, nil
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (a *Array) Retain() {
	atomic.AddInt64(&a.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the buffers and children are
// released.
// Release may be called simultaneously from multiple goroutines.
func (a *Array) Release() {
	debug.Assert(atomic.LoadInt64(&a.refCount) > 0, "too many releases")

	if atomic.AddInt64(&a.refCount, -1) == 0 {
		if a.typeIDs != nil {
			a.typeIDs.Release()
		}
		if a.valueOffsets != nil {
			a.valueOffsets.Release()
		}
		for _, c := range a.children {
			c.Release()
		}
		a.typeIDs, a.valueOffsets, a.children = nil, nil, nil
		a.typecodes, a.offsets = nil, nil
	}
}

func (a *Array) Len() int                 { return a.length }
func (a *Array) Offset() int              { return a.offset }
func (a *Array) Mode() tagunion.Mode      { return a.schema.Mode() }
func (a *Array) Schema() *tagunion.Schema { return a.schema }
func (a *Array) NumFields() int           { return a.schema.NumFields() }

// Field returns the child at position pos, or nil if there is none. The
// child is not sliced to the array's window.
func (a *Array) Field(pos int) Child {
	if pos < 0 || pos >= len(a.children) {
		return nil
	}
	return a.children[pos]
}

// TypeIDs returns the discriminant buffer.
func (a *Array) TypeIDs() *memory.Buffer { return a.typeIDs }

// RawTypeCodes returns the discriminants of the array's elements.
func (a *Array) RawTypeCodes() []tagunion.TypeCode {
	return a.typecodes[a.offset : a.offset+a.length]
}

// TypeCode returns the discriminant of element i.
func (a *Array) TypeCode(i int) tagunion.TypeCode { return a.typecodes[a.offset+i] }

// ChildID returns the position of the child holding element i.
func (a *Array) ChildID(i int) int { return a.schema.IndexOf(a.TypeCode(i)) }

// ValueOffsets returns the value offset buffer of a dense union, or nil.
func (a *Array) ValueOffsets() *memory.Buffer { return a.valueOffsets }

// RawValueOffsets returns the value offsets of a dense union's elements.
func (a *Array) RawValueOffsets() []int32 {
	if a.offsets == nil {
		return nil
	}
	return a.offsets[a.offset : a.offset+a.length]
}

// ValueOffset returns the value offset of element i of a dense union.
func (a *Array) ValueOffset(i int) int32 { return a.offsets[a.offset+i] }

// ChildIndex returns the index of element i inside its selected child.
func (a *Array) ChildIndex(i int) int {
	if a.schema.Mode() == tagunion.DenseMode {
		return int(a.ValueOffset(i))
	}
	return a.offset + i
}

// resolve returns the child holding element i and the index of the element
// inside that child.
func (a *Array) resolve(i int) (Child, int) {
	return a.children[a.ChildID(i)], a.ChildIndex(i)
}

func (a *Array) IsNull(i int) bool {
	c, idx := a.resolve(i)
	return c.IsNull(idx)
}

func (a *Array) IsValid(i int) bool { return !a.IsNull(i) }

// NullN returns the number of elements whose selected child slot is null.
func (a *Array) NullN() int {
	n := 0
	for i := 0; i < a.length; i++ {
		if a.IsNull(i) {
			n++
		}
	}
	return n
}

// NewSlice returns a new array viewing the elements [i, j) of a. The bounds
// are clamped to the elements a holds. The slice shares a's schema,
// buffers and children; the caller must Release it.
//
// NewSlice panics if i is negative or j < i.
func (a *Array) NewSlice(i, j int) *Array {
	if i < 0 || j < i {
		panic(errorf("invalid slice bounds [%d:%d]", i, j))
	}
	if j > a.length {
		j = a.length
	}
	if i > j {
		i = j
	}
	return a.slice(i, j-i)
}

// Slice returns a new array viewing the elements of a from start onwards.
// A start past the end yields an empty array.
func (a *Array) Slice(start int) *Array {
	end := a.length
	if start > end {
		end = start
	}
	return a.NewSlice(start, end)
}

func (a *Array) slice(start, length int) *Array {
	out := &Array{
		refCount:     1,
		schema:       a.schema,
		length:       length,
		offset:       a.offset + start,
		typeIDs:      a.typeIDs,
		valueOffsets: a.valueOffsets,
		children:     a.children,
		typecodes:    a.typecodes,
		offsets:      a.offsets,
	}
	if out.typeIDs != nil {
		out.typeIDs.Retain()
	}
	if out.valueOffsets != nil {
		out.valueOffsets.Retain()
	}
	for _, c := range out.children {
		c.Retain()
	}
	return out
}
