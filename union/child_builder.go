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

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/goccy/go-json"
)

// ChildBuilder is the capability set a union builder needs from a child
// builder. FromArrow adapts any Arrow builder, and DenseBuilder and
// SparseBuilder implement it themselves, so union builders nest.
//
// A failing AppendNull, AppendNulls or UnmarshalOne must not append
// anything.
type ChildBuilder interface {
	Retain()
	Release()

	Len() int
	AppendNull() error
	AppendNulls(n int) error
	UnmarshalOne(dec *json.Decoder) error

	// NewChild finishes the values appended so far and resets the builder.
	NewChild() (Child, error)
}

// ArrowBuilder adapts an Arrow builder to ChildBuilder. The embedded
// builder is used directly to append values.
type ArrowBuilder struct {
	array.Builder
}

// FromArrow returns b as a union child builder.
func FromArrow(b array.Builder) *ArrowBuilder {
	return &ArrowBuilder{Builder: b}
}

func (b *ArrowBuilder) AppendNull() error {
	b.Builder.AppendNull()
	return nil
}

func (b *ArrowBuilder) AppendNulls(n int) error {
	b.Builder.AppendNulls(n)
	return nil
}

// UnmarshalOne decodes one value. Arrow's nested builders may append part of
// a value before failing, so nested values are first decoded into a scratch
// builder.
func (b *ArrowBuilder) UnmarshalOne(dec *json.Decoder) error {
	if _, nested := b.Type().(arrow.NestedType); !nested {
		return b.Builder.UnmarshalOne(dec)
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	scratch := array.NewBuilder(memory.DefaultAllocator, b.Type())
	defer scratch.Release()
	if err := scratch.UnmarshalOne(valueDecoder(raw)); err != nil {
		return err
	}
	return b.Builder.UnmarshalOne(valueDecoder(raw))
}

func (b *ArrowBuilder) NewChild() (Child, error) {
	return b.Builder.NewArray(), nil
}

func valueDecoder(raw []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec
}

// acceptsNull reports whether c.AppendNull would succeed.
func acceptsNull(c ChildBuilder) bool {
	if u, ok := c.(interface{ acceptsNull() bool }); ok {
		return u.acceptsNull()
	}
	return true
}

var (
	_ ChildBuilder = (*ArrowBuilder)(nil)
	_ ChildBuilder = (*DenseBuilder)(nil)
	_ ChildBuilder = (*SparseBuilder)(nil)
)
