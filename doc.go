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

/*
Package tagunion provides tagged-union columnar arrays on top of Apache Arrow.

A union array is a single array whose elements may each belong to one of
several declared logical types. Each logical type is physically stored in its
own child array, and a per-element discriminant (a signed 8-bit type code)
selects the child holding a given element.

# Layouts

Two physical layouts are supported.

In the dense layout every value is stored once. Alongside the discriminants,
a buffer of signed 32-bit value offsets locates each element inside its
selected child. Children only need to be as long as the values they hold, and
offsets may repeat or appear in any order.

In the sparse layout every child reserves a slot for every logical element;
slot i of the selected child holds element i and the other children's slots
are unused (usually null). There is no offsets buffer.

# Schemas

A Schema is the ordered list of (field name, type code) pairs describing the
children plus the layout Mode. Schemas are immutable and shared by reference
between every array built against them.

The array, factory, validation and builder APIs live in the union
sub-package.
*/
package tagunion
