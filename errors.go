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

import "github.com/apache/arrow/go/v17/arrow"

var (
	// ErrInvalid is wrapped by every construction, validation and builder
	// error. It is the same sentinel Arrow uses, so errors.Is works against
	// either package.
	ErrInvalid = arrow.ErrInvalid
	// ErrNotImplemented is returned for operations that only one of the
	// layouts supports.
	ErrNotImplemented = arrow.ErrNotImplemented
)
