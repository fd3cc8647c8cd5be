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
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/bitutil"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
)

// GetFlattenedField returns the child at index of a sparse union, sliced to
// the union's elements, with every element whose discriminant selects
// another child turned into a null. The caller must Release the result.
//
// Only sparse unions whose child is an Arrow array with a validity bitmap
// can be flattened.
func (a *Array) GetFlattenedField(mem memory.Allocator, index int) (arrow.Array, error) {
	if a.Mode() != tagunion.SparseMode {
		return nil, fmt.Errorf("%w: tagunion/union: flattening a %s union", tagunion.ErrNotImplemented, a.Mode())
	}
	if index < 0 || index >= a.NumFields() {
		return nil, fmt.Errorf("%w: tagunion/union: field index %d out of range [0, %d)", arrow.ErrIndex, index, a.NumFields())
	}

	child, ok := a.children[index].(arrow.Array)
	if !ok {
		return nil, fmt.Errorf("%w: tagunion/union: flattening a %s child", tagunion.ErrNotImplemented, childTypeString(a.children[index]))
	}

	sliced := array.NewSliceData(child.Data(), int64(a.offset), int64(a.offset+a.length))
	defer sliced.Release()

	switch sliced.DataType().ID() {
	case arrow.NULL:
		return array.MakeFromData(sliced), nil
	case arrow.SPARSE_UNION, arrow.DENSE_UNION, arrow.RUN_END_ENCODED:
		return nil, fmt.Errorf("%w: tagunion/union: flattening a %s child", tagunion.ErrNotImplemented, sliced.DataType())
	}

	// the synthesized bitmap keeps the child's offset so the other buffers
	// can be shared as they are
	childOffset := sliced.Offset()
	bitmap := memory.NewResizableBuffer(mem)
	defer bitmap.Release()
	bitmap.Resize(int(bitutil.BytesForBits(int64(childOffset + a.length))))
	bits := bitmap.Bytes()
	memory.Set(bits, 0)

	code := a.schema.Field(index).Code
	for i, c := range a.RawTypeCodes() {
		if c == code {
			bitutil.SetBit(bits, childOffset+i)
		}
	}
	if childBitmap := sliced.Buffers()[0]; childBitmap != nil {
		bitutil.BitmapAnd(bits, childBitmap.Bytes(), int64(childOffset), int64(childOffset),
			bits, int64(childOffset), int64(a.length))
	}
	nulls := a.length - bitutil.CountSetBits(bits, childOffset, a.length)

	buffers := make([]*memory.Buffer, len(sliced.Buffers()))
	copy(buffers, sliced.Buffers())
	buffers[0] = bitmap

	data := array.NewData(sliced.DataType(), a.length, buffers, sliced.Children(), nulls, childOffset)
	defer data.Release()
	return array.MakeFromData(data), nil
}
