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
)

// Child is the capability set a union child must provide. Every
// arrow.Array implements it, and so does *Array, which lets unions nest.
type Child interface {
	fmt.Stringer

	Len() int
	IsNull(i int) bool
	IsValid(i int) bool
	ValueStr(i int) string
	GetOneForMarshal(i int) interface{}

	Retain()
	Release()
}

var (
	_ Child = (arrow.Array)(nil)
	_ Child = (*Array)(nil)
)

// childSliceEqual compares the [lbeg, lend) range of l to the [rbeg, rend)
// range of r. Children of different kinds never compare equal.
func childSliceEqual(l Child, lbeg, lend int, r Child, rbeg, rend int) bool {
	switch l := l.(type) {
	case *Array:
		r, ok := r.(*Array)
		return ok && SliceEqual(l, lbeg, lend, r, rbeg, rend)
	case arrow.Array:
		r, ok := r.(arrow.Array)
		return ok && array.SliceEqual(l, int64(lbeg), int64(lend), r, int64(rbeg), int64(rend))
	}
	return false
}

func childTypeString(c Child) string {
	switch c := c.(type) {
	case *Array:
		return c.schema.String()
	case arrow.Array:
		return c.DataType().String()
	}
	return fmt.Sprintf("%T", c)
}
