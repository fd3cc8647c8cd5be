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

// Equal reports whether l and r hold the same logical values: same schema,
// same discriminant for every element and equal child values at the
// resolved indices. The physical layout (offsets, value offsets, unused
// sparse slots) does not matter.
//
// Both arrays are expected to pass ValidateFull.
func Equal(l, r *Array) bool {
	if l.Len() != r.Len() {
		return false
	}
	return SliceEqual(l, 0, l.Len(), r, 0, r.Len())
}

// SliceEqual reports whether the elements [lbeg, lend) of l are equal to
// the elements [rbeg, rend) of r.
func SliceEqual(l *Array, lbeg, lend int, r *Array, rbeg, rend int) bool {
	switch {
	case lbeg < 0 || lend < lbeg || lend > l.Len():
		return false
	case rbeg < 0 || rend < rbeg || rend > r.Len():
		return false
	case lend-lbeg != rend-rbeg:
		return false
	case !l.schema.Equal(r.schema):
		return false
	}

	for i, j := lbeg, rbeg; i < lend; i, j = i+1, j+1 {
		code := l.TypeCode(i)
		if code != r.TypeCode(j) || !l.schema.HasCode(code) {
			return false
		}

		lc, li := l.resolve(i)
		rc, ri := r.resolve(j)
		if !childSliceEqual(lc, li, li+1, rc, ri, ri+1) {
			return false
		}
	}
	return true
}

// RangeEquals reports whether the elements [start, end) of a are equal to
// the elements of other starting at otherStart.
func (a *Array) RangeEquals(start, end, otherStart int, other *Array) bool {
	return SliceEqual(a, start, end, other, otherStart, otherStart+end-start)
}
