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
Package union implements dense and sparse union arrays over Arrow children.

# Construction

MakeDense and MakeSparse assemble an Array from Arrow discriminant (int8)
and value offset (int32) arrays plus the children. NewDense and NewSparse
build one directly from buffers and a Schema. Both paths only run the cheap
structural check; the discriminants and offsets are checked on demand by
ValidateFull, which makes it possible to build invalid arrays on purpose.

# Building

DenseBuilder and SparseBuilder append elements one at a time. Children are
ChildBuilders, registered up front from a Schema or later with
AppendChild, which hands back the type code to pass to Append. FromArrow
adapts an Arrow builder, and a union builder can be the child of another.

# Slicing

NewSlice and Slice return views sharing all buffers and children with the
original array. Equal and SliceEqual compare logical values, so arrays with
different physical layouts but the same contents are equal.
*/
package union
