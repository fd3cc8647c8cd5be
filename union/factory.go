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
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
)

type config struct {
	names []string
	codes []tagunion.TypeCode
}

// Option configures MakeDense and MakeSparse.
type Option func(*config)

// WithFieldNames names the children in order. Without it the children are
// named after their positions: "0", "1", ...
func WithFieldNames(names ...string) Option {
	return func(c *config) { c.names = names }
}

// WithTypeCodes assigns the type codes selecting each child, in order.
// Without it every child is selected by its position.
func WithTypeCodes(codes ...tagunion.TypeCode) Option {
	return func(c *config) { c.codes = codes }
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func checkCounts(cfg config, nchildren int) error {
	switch {
	case len(cfg.names) > 0 && len(cfg.names) != nchildren:
		return errorf("field names must have the same length as children (%d != %d)", len(cfg.names), nchildren)
	case len(cfg.codes) > 0 && len(cfg.codes) != nchildren:
		return errorf("type codes must have the same length as children (%d != %d)", len(cfg.codes), nchildren)
	}
	return nil
}

func checkTypeIDs(typeIDs arrow.Array) error {
	switch {
	case typeIDs.DataType().ID() != arrow.INT8:
		return errorf("union type ids must be signed int8, got %s", typeIDs.DataType())
	case typeIDs.NullN() != 0:
		return errorf("union type ids may not have nulls")
	}
	return nil
}

// MakeDense assembles a dense union from a discriminant array (int8), a
// value offset array (int32) and the children.
//
// Field names and type codes default as described on WithFieldNames and
// WithTypeCodes; supplying a number of either that differs from the number
// of children is an ErrInvalid. The discriminants and offsets are not
// checked against the children: call ValidateFull on the result for that.
//
// The result views the discriminants and offsets from their own array
// offsets, so its Offset is always 0.
func MakeDense(typeIDs, offsets arrow.Array, children []Child, opts ...Option) (*Array, error) {
	cfg := newConfig(opts)
	if err := checkCounts(cfg, len(children)); err != nil {
		return nil, err
	}
	if err := checkTypeIDs(typeIDs); err != nil {
		return nil, err
	}
	switch {
	case offsets.DataType().ID() != arrow.INT32:
		return nil, errorf("union offsets must be signed int32, got %s", offsets.DataType())
	case offsets.NullN() != 0:
		return nil, errorf("union offsets may not have nulls")
	case offsets.Len() < typeIDs.Len():
		return nil, errorf("union offsets are shorter than type ids (%d < %d)", offsets.Len(), typeIDs.Len())
	}

	schema, err := tagunion.SchemaFromChildren(tagunion.DenseMode, len(children), cfg.names, cfg.codes)
	if err != nil {
		return nil, err
	}
	ids := valuesBuffer(typeIDs, arrow.Int8SizeBytes, typeIDs.Len())
	defer ids.Release()
	offs := valuesBuffer(offsets, arrow.Int32SizeBytes, typeIDs.Len())
	defer offs.Release()
	return NewDense(schema, typeIDs.Len(), children, ids, offs, 0)
}

// MakeSparse assembles a sparse union from a discriminant array (int8) and
// the children, which must all have the same length as the discriminants.
//
// Field names and type codes default as for MakeDense. The discriminants are
// not checked against the schema: call ValidateFull on the result for that.
func MakeSparse(typeIDs arrow.Array, children []Child, opts ...Option) (*Array, error) {
	cfg := newConfig(opts)
	if err := checkCounts(cfg, len(children)); err != nil {
		return nil, err
	}
	if err := checkTypeIDs(typeIDs); err != nil {
		return nil, err
	}
	for i, c := range children {
		if c.Len() != typeIDs.Len() {
			return nil, errorf("sparse union child #%d must have the same length as type ids (%d != %d)",
				i, c.Len(), typeIDs.Len())
		}
	}

	schema, err := tagunion.SchemaFromChildren(tagunion.SparseMode, len(children), cfg.names, cfg.codes)
	if err != nil {
		return nil, err
	}

	ids := valuesBuffer(typeIDs, arrow.Int8SizeBytes, typeIDs.Len())
	defer ids.Release()
	return NewSparse(schema, typeIDs.Len(), children, ids, 0)
}

// valuesBuffer returns a new reference to the n values of arr's data
// buffer, starting at arr's own offset.
func valuesBuffer(arr arrow.Array, width, n int) *memory.Buffer {
	buf := arr.Data().Buffers()[1]
	if buf == nil {
		// empty arrays may come without a data buffer
		return memory.NewBufferBytes(nil)
	}
	off := arr.Data().Offset()
	if off == 0 && buf.Len() == n*width {
		buf.Retain()
		return buf
	}
	return memory.SliceBuffer(buf, off*width, n*width)
}
