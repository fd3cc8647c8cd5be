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
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sync/atomic"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/columnar-dev/tagunion"
	"github.com/columnar-dev/tagunion/internal/debug"
	"github.com/goccy/go-json"
)

// Builder incrementally builds a union array. Children are registered
// under type codes, either up front from a schema or one at a time with
// AppendChild, which may be interleaved with appends. A Builder is itself
// a ChildBuilder, so it can be registered as the child of another union
// builder.
//
// To append an element, call Append with its type code and then append the
// value to the child builder registered under that code.
//
// A Builder is not safe for concurrent use.
type Builder interface {
	ChildBuilder

	Mode() tagunion.Mode
	NumChildren() int
	Child(code tagunion.TypeCode) ChildBuilder
	Schema() *tagunion.Schema

	AppendChild(child ChildBuilder, name string) tagunion.TypeCode
	Append(code tagunion.TypeCode) error

	UnmarshalJSON(data []byte) error

	NewArray() (*Array, error)
}

type builder struct {
	refCount int64
	mem      memory.Allocator
	mode     tagunion.Mode

	types    *array.Int8Builder
	offsets  *array.Int32Builder // dense only
	children []ChildBuilder
	fields   []tagunion.Field
	childIDs [int(tagunion.MaxTypeCode) + 1]int
}

func (b *builder) init(mem memory.Allocator, mode tagunion.Mode) {
	b.refCount = 1
	b.mem = mem
	b.mode = mode
	b.types = array.NewInt8Builder(mem)
	if mode == tagunion.DenseMode {
		b.offsets = array.NewInt32Builder(mem)
	}
	for i := range b.childIDs {
		b.childIDs[i] = tagunion.InvalidChildID
	}
}

// initChildren registers children under the codes and names of schema.
func (b *builder) initChildren(schema *tagunion.Schema, children []ChildBuilder) error {
	switch {
	case schema.Mode() != b.mode:
		return errorf("cannot build a %s union from a %s schema", b.mode, schema.Mode())
	case len(children) != schema.NumFields():
		return errorf("got %d child builders for %d schema fields", len(children), schema.NumFields())
	}
	for i, c := range children {
		if c == nil {
			return errorf("child builder #%d is nil", i)
		}
	}
	for i, c := range children {
		b.register(c, schema.Field(i))
	}
	return nil
}

// Retain increases the reference count by 1.
// Retain may be called simultaneously from multiple goroutines.
func (b *builder) Retain() {
	atomic.AddInt64(&b.refCount, 1)
}

// Release decreases the reference count by 1.
// When the reference count goes to zero, the memory is freed, including
// the builder's reference to every child builder.
func (b *builder) Release() {
	debug.Assert(atomic.LoadInt64(&b.refCount) > 0, "too many releases")

	if atomic.AddInt64(&b.refCount, -1) == 0 {
		b.types.Release()
		if b.offsets != nil {
			b.offsets.Release()
		}
		for _, c := range b.children {
			c.Release()
		}
		b.types, b.offsets, b.children = nil, nil, nil
	}
}

func (b *builder) Len() int            { return b.types.Len() }
func (b *builder) Mode() tagunion.Mode { return b.mode }
func (b *builder) NumChildren() int    { return len(b.children) }

// Child returns the builder registered under code, or nil.
func (b *builder) Child(code tagunion.TypeCode) ChildBuilder {
	if code < 0 {
		return nil
	}
	if id := b.childIDs[code]; id != tagunion.InvalidChildID {
		return b.children[id]
	}
	return nil
}

// Schema returns the schema of the children registered so far.
func (b *builder) Schema() *tagunion.Schema {
	s, err := tagunion.NewSchema(b.mode, b.fields)
	debug.Assert(err == nil, "union builder registry is inconsistent")
	return s
}

// AppendChild registers child under the first unused type code, counting
// from the current number of children, and returns that code. The union
// builder keeps its own reference to child.
//
// AppendChild panics if all type codes are taken.
func (b *builder) AppendChild(child ChildBuilder, name string) tagunion.TypeCode {
	code := b.nextTypeCode()
	b.register(child, tagunion.Field{Name: name, Code: code})
	debug.Log(func() string { return fmt.Sprintf("union builder: child %q registered as type code %d", name, code) })
	return code
}

func (b *builder) register(child ChildBuilder, f tagunion.Field) {
	child.Retain()
	b.childIDs[f.Code] = len(b.children)
	b.children = append(b.children, child)
	b.fields = append(b.fields, f)
}

func (b *builder) nextTypeCode() tagunion.TypeCode {
	const ncodes = int(tagunion.MaxTypeCode) + 1
	for k := 0; k < ncodes; k++ {
		code := (len(b.children) + k) % ncodes
		if b.childIDs[code] == tagunion.InvalidChildID {
			return tagunion.TypeCode(code)
		}
	}
	panic(errorf("union builder has used all %d type codes", ncodes))
}

// lookup returns the child index registered under code.
func (b *builder) lookup(code tagunion.TypeCode) (int, error) {
	if code < 0 || b.childIDs[code] == tagunion.InvalidChildID {
		return tagunion.InvalidChildID, errorf("type code %d was never registered with the union builder", code)
	}
	return b.childIDs[code], nil
}

// acceptsNull reports whether AppendNull would succeed: a null is a null
// of the first child, and a sparse union also pads every other child.
func (b *builder) acceptsNull() bool {
	if len(b.children) == 0 {
		return false
	}
	if b.mode == tagunion.DenseMode {
		return acceptsNull(b.children[0])
	}
	for _, c := range b.children {
		if !acceptsNull(c) {
			return false
		}
	}
	return true
}

// checkPadding fails if a child other than id cannot take the null a
// sparse append pads it with.
func (b *builder) checkPadding(id int) error {
	if b.mode != tagunion.SparseMode {
		return nil
	}
	for i, c := range b.children {
		if i != id && !acceptsNull(c) {
			return errorf("sparse union child #%d cannot be padded with a null", i)
		}
	}
	return nil
}

// commit records an element selecting child id, whose value sits at index
// n of that child. Sparse unions pad every other child with a null.
func (b *builder) commit(code tagunion.TypeCode, id, n int) {
	b.types.Append(code)
	switch b.mode {
	case tagunion.DenseMode:
		b.offsets.Append(int32(n))
	case tagunion.SparseMode:
		for i, c := range b.children {
			if i != id {
				err := c.AppendNull()
				debug.Assert(err == nil, "sparse union padding failed after checkPadding")
			}
		}
	}
}

// prepare checks that an element selecting code can be committed and
// returns the child index and the index the value will get in the child.
func (b *builder) prepare(code tagunion.TypeCode) (id, n int, err error) {
	if id, err = b.lookup(code); err != nil {
		return
	}
	if err = b.checkPadding(id); err != nil {
		return
	}
	n = b.children[id].Len()
	if b.mode == tagunion.DenseMode && n > math.MaxInt32 {
		err = errorf("dense union child #%d is too long for int32 offsets (%d)", id, n)
	}
	return
}

// appendValue appends an element selecting code whose value is added by
// add. Nothing is appended when add fails.
func (b *builder) appendValue(code tagunion.TypeCode, add func(ChildBuilder) error) error {
	id, n, err := b.prepare(code)
	if err != nil {
		return err
	}
	if err := add(b.children[id]); err != nil {
		return err
	}
	b.commit(code, id, n)
	return nil
}

// Append starts a new element selecting the child registered under code.
// The caller must then append the element's value to that child.
//
// A dense builder records, as the element's value offset, the length the
// selected child has before its value is appended. A sparse builder
// appends a null to every other child.
func (b *builder) Append(code tagunion.TypeCode) error {
	id, n, err := b.prepare(code)
	if err != nil {
		return err
	}
	b.commit(code, id, n)
	return nil
}

// AppendNull appends a null of the first registered child.
func (b *builder) AppendNull() error {
	if len(b.children) == 0 {
		return errorf("cannot append a null to a union builder without children")
	}
	if !acceptsNull(b.children[0]) {
		return errorf("union child #0 cannot hold a null")
	}
	return b.appendValue(b.fields[0].Code, ChildBuilder.AppendNull)
}

// AppendNulls appends n nulls of the first registered child.
func (b *builder) AppendNulls(n int) error {
	for i := 0; i < n; i++ {
		if err := b.AppendNull(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalOne reads one element, either null or a [type code, value]
// pair. The pair is read in full before anything is appended, so a
// malformed element leaves the builder unchanged.
func (b *builder) UnmarshalOne(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}

	switch t {
	case json.Delim('['):
	case nil:
		return b.AppendNull()
	default:
		return &json.UnmarshalTypeError{
			Value:  fmt.Sprint(t),
			Type:   reflect.TypeOf([]interface{}{}),
			Offset: dec.InputOffset(),
			Struct: "union",
		}
	}

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	code, err := typeCodeFromToken(tok)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if t, err = dec.Token(); err != nil {
		return err
	}
	if t != json.Delim(']') {
		return errorf("union element must be a [type code, value] pair, got extra token %v", t)
	}

	return b.appendValue(code, func(c ChildBuilder) error {
		return c.UnmarshalOne(valueDecoder(raw))
	})
}

func typeCodeFromToken(tok json.Token) (tagunion.TypeCode, error) {
	var v int64
	switch tok := tok.(type) {
	case json.Number:
		n, err := tok.Int64()
		if err != nil {
			return 0, errorf("invalid union type code %q", tok)
		}
		v = n
	case float64:
		if tok != math.Trunc(tok) {
			return 0, errorf("invalid union type code %v", tok)
		}
		v = int64(tok)
	default:
		return 0, errorf("union type code must be a number, got %v", tok)
	}
	if v < 0 || v > int64(tagunion.MaxTypeCode) {
		return 0, errorf("union type code %d out of range [0, %d]", v, tagunion.MaxTypeCode)
	}
	return tagunion.TypeCode(v), nil
}

// UnmarshalJSON appends every element of a JSON list. Elements before a
// malformed one stay appended.
func (b *builder) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '[' {
		return errorf("union builder must unpack from a json array, found %v", t)
	}

	for dec.More() {
		if err := b.UnmarshalOne(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// finish turns every child builder into a child array and returns the
// names and codes the children were registered under.
func (b *builder) finish() (children []Child, names []string, codes []tagunion.TypeCode, err error) {
	children = make([]Child, 0, len(b.children))
	names = make([]string, len(b.fields))
	codes = make([]tagunion.TypeCode, len(b.fields))
	for i, c := range b.children {
		child, cerr := c.NewChild()
		if cerr != nil && err == nil {
			err = cerr
		}
		if cerr == nil {
			children = append(children, child)
		}
		names[i] = b.fields[i].Name
		codes[i] = b.fields[i].Code
	}
	if err != nil {
		releaseChildren(children)
		children = nil
	}
	return
}

func releaseChildren(children []Child) {
	for _, c := range children {
		c.Release()
	}
}

// DenseBuilder builds dense unions.
type DenseBuilder struct {
	builder
}

// NewDenseBuilder returns a dense union builder without children; register
// them with AppendChild.
func NewDenseBuilder(mem memory.Allocator) *DenseBuilder {
	b := &DenseBuilder{}
	b.init(mem, tagunion.DenseMode)
	return b
}

// NewDenseBuilderWithChildren returns a dense union builder whose children
// are registered under the names and type codes of schema.
func NewDenseBuilderWithChildren(mem memory.Allocator, schema *tagunion.Schema, children []ChildBuilder) (*DenseBuilder, error) {
	b := NewDenseBuilder(mem)
	if err := b.initChildren(schema, children); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// NewArray finishes the children and returns the accumulated elements as a
// dense union, leaving the builder empty with its children still
// registered. The array is not fully validated.
func (b *DenseBuilder) NewArray() (*Array, error) {
	typeIDs := b.types.NewInt8Array()
	defer typeIDs.Release()
	offsets := b.offsets.NewInt32Array()
	defer offsets.Release()
	children, names, codes, err := b.finish()
	if err != nil {
		return nil, err
	}
	defer releaseChildren(children)

	return MakeDense(typeIDs, offsets, children, WithFieldNames(names...), WithTypeCodes(codes...))
}

// NewChild is NewArray for a union nested in another union builder.
func (b *DenseBuilder) NewChild() (Child, error) {
	arr, err := b.NewArray()
	if err != nil {
		return nil, err
	}
	return arr, nil
}

// SparseBuilder builds sparse unions. Every append pads every child but
// the selected one with a null, so once the caller appends the value every
// child is as long as the union.
type SparseBuilder struct {
	builder
}

// NewSparseBuilder returns a sparse union builder without children;
// register them with AppendChild.
func NewSparseBuilder(mem memory.Allocator) *SparseBuilder {
	b := &SparseBuilder{}
	b.init(mem, tagunion.SparseMode)
	return b
}

// NewSparseBuilderWithChildren returns a sparse union builder whose
// children are registered under the names and type codes of schema.
func NewSparseBuilderWithChildren(mem memory.Allocator, schema *tagunion.Schema, children []ChildBuilder) (*SparseBuilder, error) {
	b := NewSparseBuilder(mem)
	if err := b.initChildren(schema, children); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// AppendChild registers child like Builder.AppendChild and pads it with
// nulls for the elements appended before it was registered.
//
// AppendChild panics if child needs padding but cannot hold nulls, as a
// union builder without children cannot.
func (b *SparseBuilder) AppendChild(child ChildBuilder, name string) tagunion.TypeCode {
	n := b.Len() - child.Len()
	if n > 0 && !acceptsNull(child) {
		panic(errorf("sparse union child %q cannot be padded with %d nulls", name, n))
	}
	code := b.builder.AppendChild(child, name)
	if n > 0 {
		err := child.AppendNulls(n)
		debug.Assert(err == nil, "padding a new sparse union child failed")
	}
	return code
}

// NewArray finishes the children and returns the accumulated elements as a
// sparse union, leaving the builder empty with its children still
// registered. It fails if a child's length differs from the union's, which
// happens when a value was not appended after Append. The array is not
// fully validated.
func (b *SparseBuilder) NewArray() (*Array, error) {
	typeIDs := b.types.NewInt8Array()
	defer typeIDs.Release()
	children, names, codes, err := b.finish()
	if err != nil {
		return nil, err
	}
	defer releaseChildren(children)

	return MakeSparse(typeIDs, children, WithFieldNames(names...), WithTypeCodes(codes...))
}

// NewChild is NewArray for a union nested in another union builder.
func (b *SparseBuilder) NewChild() (Child, error) {
	arr, err := b.NewArray()
	if err != nil {
		return nil, err
	}
	return arr, nil
}

var (
	_ Builder = (*DenseBuilder)(nil)
	_ Builder = (*SparseBuilder)(nil)
)
