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
	"strings"

	"github.com/goccy/go-json"
)

// GetOneForMarshal returns element i as a [type code, value] pair, or nil
// when the selected child slot is null.
func (a *Array) GetOneForMarshal(i int) interface{} {
	c, idx := a.resolve(i)
	if c.IsNull(idx) {
		return nil
	}
	return []interface{}{a.TypeCode(i), c.GetOneForMarshal(idx)}
}

// MarshalJSON encodes the array as a JSON list of [type code, value] pairs,
// with null for null elements. A builder's UnmarshalJSON reads the same
// format back.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	buf.WriteByte('[')
	for i := 0; i < a.Len(); i++ {
		if i != 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(a.GetOneForMarshal(i)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ValueStr returns element i as "{name=value}", or "(null)".
func (a *Array) ValueStr(i int) string {
	c, idx := a.resolve(i)
	if c.IsNull(idx) {
		return "(null)"
	}
	return fmt.Sprintf("{%s=%s}", a.schema.Field(a.ChildID(i)).Name, c.ValueStr(idx))
}

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(a.ValueStr(i))
	}
	b.WriteByte(']')
	return b.String()
}
