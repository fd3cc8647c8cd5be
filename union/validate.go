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
	"github.com/columnar-dev/tagunion"
	"github.com/columnar-dev/tagunion/internal/debug"
)

func errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: tagunion/union: "+format, append([]interface{}{tagunion.ErrInvalid}, args...)...)
}

// Validate runs the structural checks: the discriminant buffer (and the
// value offset buffer of a dense union) covers offset+length elements and
// there is one child per schema field. It does not look at the buffer
// contents.
func (a *Array) Validate() error {
	end := a.offset + a.length
	switch {
	case a.offset < 0:
		return errorf("negative union offset %d", a.offset)
	case a.length < 0:
		return errorf("negative union length %d", a.length)
	case len(a.children) != a.schema.NumFields():
		return errorf("union has %d children but its schema declares %d fields",
			len(a.children), a.schema.NumFields())
	case a.typeIDs == nil:
		return errorf("union is missing its type ids buffer")
	case len(a.typecodes) < end:
		return errorf("type ids buffer holds %d elements, need at least %d (offset %d + length %d)",
			len(a.typecodes), end, a.offset, a.length)
	}

	for i, c := range a.children {
		if c == nil {
			return errorf("union child #%d is nil", i)
		}
	}

	if a.schema.Mode() == tagunion.DenseMode {
		switch {
		case a.valueOffsets == nil:
			return errorf("dense union is missing its value offsets buffer")
		case len(a.offsets) < end:
			return errorf("value offsets buffer holds %d elements, need at least %d (offset %d + length %d)",
				len(a.offsets), end, a.offset, a.length)
		}
	}
	return nil
}

// ValidateFull runs Validate and then checks every element: its
// discriminant must be declared by the schema and, for a dense union, its
// value offset must index into the selected child. Sparse children must be
// at least offset+length long.
//
// Dense value offsets may repeat and need not be monotonic. The children
// themselves are not validated.
func (a *Array) ValidateFull() error {
	if err := a.Validate(); err != nil {
		return err
	}

	childIDs := a.schema.ChildIDs()
	codes := a.RawTypeCodes()
	for i, code := range codes {
		if code < 0 || childIDs[code] == tagunion.InvalidChildID {
			return errorf("union value at position %d has invalid type id %d", i, code)
		}
	}

	var err error
	switch a.schema.Mode() {
	case tagunion.DenseMode:
		err = a.validateDenseOffsets(codes, childIDs)
	case tagunion.SparseMode:
		err = a.validateSparseChildren()
	}
	if err != nil {
		debug.Log(func() string { return "ValidateFull: " + err.Error() })
	}
	return err
}

func (a *Array) validateDenseOffsets(codes []tagunion.TypeCode, childIDs []int) error {
	// child lengths indexed by type code
	var childLengths [int(arrow.MaxUnionTypeCode) + 1]int32
	for i, c := range a.children {
		childLengths[a.schema.Field(i).Code] = int32(c.Len())
	}

	for i, off := range a.RawValueOffsets() {
		code := codes[i]
		switch {
		case off < 0:
			return errorf("union value at position %d has negative offset %d", i, off)
		case off >= childLengths[code]:
			return errorf("union value at position %d has offset larger than child #%d length (%d >= %d)",
				i, childIDs[code], off, childLengths[code])
		}
	}
	return nil
}

// validateSparseChildren compares every child to offset+length rather than
// to offset alone, so an empty slice may sit exactly at a child's end but
// not beyond it.
func (a *Array) validateSparseChildren() error {
	need := a.offset + a.length
	for i, c := range a.children {
		if c.Len() < need {
			return errorf("sparse union child #%d has length smaller than expected for union array (%d < %d)",
				i, c.Len(), need)
		}
	}
	return nil
}
