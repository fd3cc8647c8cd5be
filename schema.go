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

package tagunion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

// TypeCode is the discriminant stored for every element of a union array.
type TypeCode = arrow.UnionTypeCode

const (
	// MaxTypeCode is the largest type code a schema may declare.
	MaxTypeCode TypeCode = arrow.MaxUnionTypeCode
	// InvalidChildID marks a type code that is not declared by a schema.
	InvalidChildID int = arrow.InvalidUnionChildID
)

// Mode is the physical layout of a union array.
type Mode int8

const (
	SparseMode Mode = Mode(arrow.SparseMode)
	DenseMode  Mode = Mode(arrow.DenseMode)
)

func (m Mode) String() string {
	switch m {
	case SparseMode:
		return "sparse"
	case DenseMode:
		return "dense"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Field describes one child of a union: its name and the type code that
// selects it.
type Field struct {
	Name string
	Code TypeCode
}

func (f Field) String() string { return fmt.Sprintf("%s=%d", f.Name, f.Code) }

// Schema is the ordered list of children of a union together with its
// layout. A Schema is immutable once created.
type Schema struct {
	mode     Mode
	fields   []Field
	codes    []TypeCode
	childIDs [int(MaxTypeCode) + 1]int
}

// NewSchema returns a schema for the given mode and fields, in child order.
//
// It fails with ErrInvalid if a type code is negative or declared twice.
func NewSchema(mode Mode, fields []Field) (*Schema, error) {
	if mode != SparseMode && mode != DenseMode {
		return nil, fmt.Errorf("%w: tagunion: unknown union mode %d", ErrInvalid, mode)
	}

	s := &Schema{
		mode:   mode,
		fields: make([]Field, len(fields)),
		codes:  make([]TypeCode, len(fields)),
	}
	for i := range s.childIDs {
		s.childIDs[i] = InvalidChildID
	}

	for i, f := range fields {
		if f.Code < 0 {
			return nil, fmt.Errorf("%w: tagunion: union type code %d of field %q out of range [0, %d]",
				ErrInvalid, f.Code, f.Name, MaxTypeCode)
		}
		if prev := s.childIDs[f.Code]; prev != InvalidChildID {
			return nil, fmt.Errorf("%w: tagunion: union type code %d used by fields %q and %q",
				ErrInvalid, f.Code, fields[prev].Name, f.Name)
		}
		s.fields[i] = f
		s.codes[i] = f.Code
		s.childIDs[f.Code] = i
	}
	return s, nil
}

// SchemaFromChildren builds the schema of a union with n children, filling
// in defaults for the names and codes that are not supplied.
//
// An empty names slice names the children "0", "1", ... in order, and an
// empty codes slice assigns each child its position as type code. A
// non-empty slice whose length is not n is an ErrInvalid.
func SchemaFromChildren(mode Mode, n int, names []string, codes []TypeCode) (*Schema, error) {
	switch {
	case len(names) > 0 && len(names) != n:
		return nil, fmt.Errorf("%w: tagunion: got %d field names for %d children", ErrInvalid, len(names), n)
	case len(codes) > 0 && len(codes) != n:
		return nil, fmt.Errorf("%w: tagunion: got %d type codes for %d children", ErrInvalid, len(codes), n)
	case n > int(MaxTypeCode)+1:
		return nil, fmt.Errorf("%w: tagunion: union cannot hold %d children", ErrInvalid, n)
	}

	fields := make([]Field, n)
	for i := range fields {
		if len(names) > 0 {
			fields[i].Name = names[i]
		} else {
			fields[i].Name = strconv.Itoa(i)
		}
		if len(codes) > 0 {
			fields[i].Code = codes[i]
		} else {
			fields[i].Code = TypeCode(i)
		}
	}
	return NewSchema(mode, fields)
}

func (s *Schema) Mode() Mode        { return s.mode }
func (s *Schema) NumFields() int    { return len(s.fields) }
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the fields in child order.
func (s *Schema) Fields() []Field {
	fields := make([]Field, len(s.fields))
	copy(fields, s.fields)
	return fields
}

// TypeCodes returns a copy of the type codes in child order.
func (s *Schema) TypeCodes() []TypeCode {
	codes := make([]TypeCode, len(s.codes))
	copy(codes, s.codes)
	return codes
}

// Names returns the field names in child order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// ChildIDs maps every possible type code to its child index, or to
// InvalidChildID for codes the schema does not declare. The result is a
// copy, indexed by type code.
func (s *Schema) ChildIDs() []int {
	ids := make([]int, len(s.childIDs))
	copy(ids, s.childIDs[:])
	return ids
}

// IndexOf returns the child index selected by code, or InvalidChildID.
func (s *Schema) IndexOf(code TypeCode) int {
	if code < 0 {
		return InvalidChildID
	}
	return s.childIDs[code]
}

// HasCode reports whether code is declared by the schema.
func (s *Schema) HasCode(code TypeCode) bool { return s.IndexOf(code) != InvalidChildID }

// Equal reports whether both schemas have the same mode and the same
// fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	switch {
	case s == o:
		return true
	case s == nil || o == nil:
		return false
	case s.mode != o.mode || len(s.fields) != len(o.fields):
		return false
	}
	for i, f := range s.fields {
		if f != o.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.mode.String())
	b.WriteString("_union<")
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteByte('>')
	return b.String()
}
