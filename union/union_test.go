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

package union_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
	"github.com/columnar-dev/tagunion/union"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromJSON(t *testing.T, mem memory.Allocator, dt arrow.DataType, data string) arrow.Array {
	t.Helper()
	arr, _, err := array.FromJSON(mem, dt, strings.NewReader(data))
	require.NoError(t, err)
	return arr
}

func mustSchema(t *testing.T, mode tagunion.Mode, fields ...tagunion.Field) *tagunion.Schema {
	t.Helper()
	s, err := tagunion.NewSchema(mode, fields)
	require.NoError(t, err)
	return s
}

func typeIDsBuffer(ids ...int8) *memory.Buffer {
	return memory.NewBufferBytes(arrow.Int8Traits.CastToBytes(ids))
}

func offsetsBuffer(offsets ...int32) *memory.Buffer {
	return memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))
}

// makeUnions returns a sparse and a dense union holding the same seven
// logical values: [{u0=0} {u1=11} {u0=(null)} {u0=3} {u1=14} {u1=15} {u0=7}]
func makeUnions(t *testing.T, mem memory.Allocator) (sparse, dense *union.Array) {
	t.Helper()

	fields := []tagunion.Field{{Name: "u0", Code: 5}, {Name: "u1", Code: 10}}
	typeIDs := typeIDsBuffer(5, 10, 5, 5, 10, 10, 5)

	sparseChildren := []union.Child{
		fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[0, 1, null, 3, 4, 5, 7]`),
		fromJSON(t, mem, arrow.PrimitiveTypes.Uint8, `[10, 11, 12, 13, 14, 15, 16]`),
	}
	defer sparseChildren[0].Release()
	defer sparseChildren[1].Release()

	denseChildren := []union.Child{
		fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[0, null, 3, 7]`),
		fromJSON(t, mem, arrow.PrimitiveTypes.Uint8, `[11, 14, 15]`),
	}
	defer denseChildren[0].Release()
	defer denseChildren[1].Release()

	var err error
	sparse, err = union.NewSparse(mustSchema(t, tagunion.SparseMode, fields...), 7, sparseChildren, typeIDs, 0)
	require.NoError(t, err)
	dense, err = union.NewDense(mustSchema(t, tagunion.DenseMode, fields...), 7, denseChildren,
		typeIDs, offsetsBuffer(0, 0, 1, 2, 1, 2, 3), 0)
	require.NoError(t, err)
	return sparse, dense
}

func TestUnionSliceEquals(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sparse, dense := makeUnions(t, mem)
	defer sparse.Release()
	defer dense.Release()

	checkUnion := func(arr *union.Array) {
		require.NoError(t, arr.ValidateFull())

		size := arr.Len()
		slice := arr.Slice(2)
		defer slice.Release()
		assert.EqualValues(t, size-2, slice.Len())

		slice2 := arr.Slice(2)
		defer slice2.Release()
		assert.EqualValues(t, size-2, slice2.Len())

		assert.True(t, union.Equal(slice, slice2))
		assert.True(t, arr.RangeEquals(2, arr.Len(), 0, slice))

		// chain slices
		chained1 := arr.Slice(1)
		defer chained1.Release()
		chained := chained1.Slice(1)
		defer chained.Release()
		assert.True(t, union.Equal(slice, chained))
		assert.Equal(t, 2, chained.Offset())

		slice3, slice4 := arr.NewSlice(1, 6), arr.NewSlice(1, 6)
		defer slice3.Release()
		defer slice4.Release()
		assert.EqualValues(t, 5, slice3.Len())

		assert.True(t, union.Equal(slice3, slice4))
		assert.True(t, arr.RangeEquals(1, 6, 0, slice3))
		assert.False(t, arr.RangeEquals(0, 5, 0, slice3))
		assert.NoError(t, slice3.ValidateFull())
	}

	checkUnion(sparse)
	checkUnion(dense)
}

func TestUnionLayoutsCompareLogically(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sparse, dense := makeUnions(t, mem)
	defer sparse.Release()
	defer dense.Release()

	// different modes never compare equal
	assert.False(t, union.Equal(sparse, dense))

	// a dense union with extra, unreferenced child values and a shuffled
	// value layout holds the same logical values
	children := []union.Child{
		fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[99, 7, 3, null, 0]`),
		fromJSON(t, mem, arrow.PrimitiveTypes.Uint8, `[15, 14, 11]`),
	}
	defer children[0].Release()
	defer children[1].Release()

	schema := mustSchema(t, tagunion.DenseMode, tagunion.Field{Name: "u0", Code: 5}, tagunion.Field{Name: "u1", Code: 10})
	other, err := union.NewDense(schema, 7, children,
		typeIDsBuffer(5, 10, 5, 5, 10, 10, 5), offsetsBuffer(4, 2, 3, 2, 1, 0, 1), 0)
	require.NoError(t, err)
	defer other.Release()

	require.NoError(t, other.ValidateFull())
	assert.True(t, union.Equal(dense, other))
	assert.Equal(t, dense.String(), other.String())

	changed, err := union.NewDense(schema, 7, children,
		typeIDsBuffer(5, 10, 5, 5, 10, 10, 5), offsetsBuffer(4, 2, 3, 2, 1, 0, 0), 0)
	require.NoError(t, err)
	defer changed.Release()
	assert.False(t, union.Equal(dense, changed))
	assert.True(t, dense.RangeEquals(0, 6, 0, changed))
}

func TestUnionAccessors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sparse, dense := makeUnions(t, mem)
	defer sparse.Release()
	defer dense.Release()

	for _, arr := range []*union.Array{sparse, dense} {
		assert.Equal(t, 7, arr.Len())
		assert.Equal(t, 2, arr.NumFields())
		assert.Equal(t, []tagunion.TypeCode{5, 10, 5, 5, 10, 10, 5}, arr.RawTypeCodes())
		assert.Equal(t, tagunion.TypeCode(10), arr.TypeCode(1))
		assert.Equal(t, 1, arr.ChildID(1))
		assert.Equal(t, 0, arr.ChildID(2))
		assert.NotNil(t, arr.TypeIDs())

		assert.True(t, arr.IsNull(2))
		assert.False(t, arr.IsValid(2))
		assert.True(t, arr.IsValid(0))
		assert.Equal(t, 1, arr.NullN())
		assert.Equal(t, "[{u0=0} {u1=11} (null) {u0=3} {u1=14} {u1=15} {u0=7}]", arr.String())
	}

	assert.Nil(t, sparse.ValueOffsets())
	assert.Nil(t, sparse.RawValueOffsets())
	assert.Equal(t, 4, sparse.ChildIndex(4))

	assert.Equal(t, []int32{0, 0, 1, 2, 1, 2, 3}, dense.RawValueOffsets())
	assert.Equal(t, int32(2), dense.ValueOffset(5))
	assert.Equal(t, 2, dense.ChildIndex(5))

	slice := dense.NewSlice(3, 6)
	defer slice.Release()
	assert.Equal(t, []tagunion.TypeCode{5, 10, 10}, slice.RawTypeCodes())
	assert.Equal(t, []int32{2, 1, 2}, slice.RawValueOffsets())
	assert.Equal(t, "[{u0=3} {u1=14} {u1=15}]", slice.String())

	sslice := sparse.NewSlice(3, 6)
	defer sslice.Release()
	assert.Equal(t, 4, sslice.ChildIndex(1))
	assert.Equal(t, sparse.Field(0), sslice.Field(0))
}

func TestUnionSliceBounds(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sparse, dense := makeUnions(t, mem)
	defer sparse.Release()
	defer dense.Release()

	past := dense.Slice(10)
	defer past.Release()
	assert.Zero(t, past.Len())
	assert.Equal(t, 7, past.Offset())
	assert.NoError(t, past.ValidateFull())

	clamped := sparse.NewSlice(5, 100)
	defer clamped.Release()
	assert.Equal(t, 2, clamped.Len())

	assert.Panics(t, func() { sparse.NewSlice(-1, 2) })
	assert.Panics(t, func() { sparse.NewSlice(3, 2) })
}

func TestUnionStructuralValidation(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	a := fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[4, 5]`)
	defer a.Release()

	sparseSchema := mustSchema(t, tagunion.SparseMode, tagunion.Field{Name: "a", Code: 0})
	denseSchema := mustSchema(t, tagunion.DenseMode, tagunion.Field{Name: "a", Code: 0})

	tests := []struct {
		name string
		fn   func() (*union.Array, error)
	}{
		{"type ids too short", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 2, []union.Child{a}, typeIDsBuffer(0), 0)
		}},
		{"type ids too short for offset", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 2, []union.Child{a}, typeIDsBuffer(0, 0), 1)
		}},
		{"missing type ids", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 0, []union.Child{a}, nil, 0)
		}},
		{"too many children", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 1, []union.Child{a, a}, typeIDsBuffer(0), 0)
		}},
		{"missing child", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 1, []union.Child{nil}, typeIDsBuffer(0), 0)
		}},
		{"negative offset", func() (*union.Array, error) {
			return union.NewSparse(sparseSchema, 1, []union.Child{a}, typeIDsBuffer(0), -1)
		}},
		{"wrong mode", func() (*union.Array, error) {
			return union.NewSparse(denseSchema, 1, []union.Child{a}, typeIDsBuffer(0), 0)
		}},
		{"missing offsets", func() (*union.Array, error) {
			return union.NewDense(denseSchema, 1, []union.Child{a}, typeIDsBuffer(0), nil, 0)
		}},
		{"offsets too short", func() (*union.Array, error) {
			return union.NewDense(denseSchema, 2, []union.Child{a}, typeIDsBuffer(0, 0), offsetsBuffer(0), 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, err := tt.fn()
			assert.ErrorIs(t, err, tagunion.ErrInvalid)
			assert.Nil(t, arr)
		})
	}
}

func TestSparseUnionValidate(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	a := fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[4, 5]`)
	defer a.Release()

	schema := mustSchema(t, tagunion.SparseMode, tagunion.Field{Name: "a", Code: 0})
	children := []union.Child{a}
	typeIDs := typeIDsBuffer(0, 0, 0)

	tests := []struct {
		name           string
		length, offset int
		valid          bool
	}{
		{"full", 2, 0, true},
		{"offset", 1, 1, true},
		{"empty at child end", 0, 2, true},
		// length + offset < child length, but it's ok
		{"shorter than child", 1, 0, true},
		// length + offset > child length
		{"past child end", 1, 2, false},
		// offset > child length
		{"empty past child end", 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, err := union.NewSparse(schema, tt.length, children, typeIDs, tt.offset)
			require.NoError(t, err)
			defer arr.Release()

			assert.NoError(t, arr.Validate())
			if tt.valid {
				assert.NoError(t, arr.ValidateFull())
			} else {
				assert.ErrorIs(t, arr.ValidateFull(), tagunion.ErrInvalid)
			}
		})
	}
}

func TestDenseUnionValidateIgnoresOffsetWindow(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	// the child is shorter than offset+length; only the per-slot offsets
	// decide validity for dense unions
	a := fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[4]`)
	defer a.Release()

	schema := mustSchema(t, tagunion.DenseMode, tagunion.Field{Name: "a", Code: 0})
	arr, err := union.NewDense(schema, 3, []union.Child{a},
		typeIDsBuffer(0, 0, 0, 0, 0), offsetsBuffer(9, 9, 0, 0, 0), 2)
	require.NoError(t, err)
	defer arr.Release()
	assert.NoError(t, arr.ValidateFull())

	head, err := union.NewDense(schema, 3, []union.Child{a},
		typeIDsBuffer(0, 0, 0, 0, 0), offsetsBuffer(9, 9, 0, 0, 0), 1)
	require.NoError(t, err)
	defer head.Release()
	assert.ErrorIs(t, head.ValidateFull(), tagunion.ErrInvalid)
}

func TestNestedUnion(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sparse, dense := makeUnions(t, mem)
	defer sparse.Release()
	defer dense.Release()

	strs := fromJSON(t, mem, arrow.BinaryTypes.String, `["x", "y"]`)
	defer strs.Release()

	ids := fromJSON(t, mem, arrow.PrimitiveTypes.Int8, `[0, 1, 0, 1]`)
	defer ids.Release()
	offsets := fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[3, 0, 1, 1]`)
	defer offsets.Release()

	outer, err := union.MakeDense(ids, offsets, []union.Child{sparse, strs}, union.WithFieldNames("inner", "s"))
	require.NoError(t, err)
	defer outer.Release()

	require.NoError(t, outer.ValidateFull())
	assert.Equal(t, "[{inner={u0=3}} {s=x} {inner={u1=11}} {s=y}]", outer.String())

	// the same outer values, with the inner union swapped for its dense
	// twin, are not equal: child types differ
	other, err := union.MakeDense(ids, offsets, []union.Child{dense, strs}, union.WithFieldNames("inner", "s"))
	require.NoError(t, err)
	defer other.Release()
	assert.False(t, union.Equal(outer, other))

	same, err := union.MakeDense(ids, offsets, []union.Child{sparse, strs}, union.WithFieldNames("inner", "s"))
	require.NoError(t, err)
	defer same.Release()
	assert.True(t, union.Equal(outer, same))

	inner2 := sparse.Slice(2)
	defer inner2.Release()
	assert.True(t, inner2.IsNull(0))

	nullOffsets := fromJSON(t, mem, arrow.PrimitiveTypes.Int32, `[2, 0, 1, 1]`)
	defer nullOffsets.Release()
	withNull, err := union.MakeDense(ids, nullOffsets, []union.Child{sparse, strs})
	require.NoError(t, err)
	defer withNull.Release()
	assert.True(t, withNull.IsNull(0))
	assert.Equal(t, 1, withNull.NullN())
}

func TestUnionRetainRelease(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	ids := fromJSON(t, mem, arrow.PrimitiveTypes.Int8, `[0, 0, 1]`)
	ints := fromJSON(t, mem, arrow.PrimitiveTypes.Int64, `[1, 2, 3]`)
	strs := fromJSON(t, mem, arrow.BinaryTypes.String, `["a", "b", "c"]`)

	arr, err := union.MakeSparse(ids, []union.Child{ints, strs})
	require.NoError(t, err)

	// the union keeps its inputs alive on its own
	ids.Release()
	ints.Release()
	strs.Release()

	slice := arr.Slice(1)
	arr.Retain()
	arr.Release()
	arr.Release()

	assert.Equal(t, "[{0=2} {1=c}]", slice.String())
	slice.Release()
}
