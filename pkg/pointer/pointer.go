// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer provides generic helpers for the nullable fields of catalogue
records.

Key Functions:
  - To: Creates a pointer from a value literal.
  - NonZero: Creates a pointer only when the value is not the zero value.
*/
package pointer

// To returns a pointer to the provided value.
func To[T any](v T) *T {
	return &v
}

// NonZero returns a pointer to v, or nil when v is the zero value of T.
//
// Upstream payloads use zero values for "unknown" (a 0 rating, an empty poster
// path), which map to a null field on the record.
func NonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
