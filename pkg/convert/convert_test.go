// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/ikusare/pkg/convert"
)

/*
TestLeadingYear covers release-date parsing edge cases.
*/
func TestLeadingYear(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"2021-06-04", 2021, true},
		{"1997", 1997, true},
		{"", 0, false},
		{"19", 0, false},
		{"abcd-01-01", 0, false},
		{"20210", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := convert.LeadingYear(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToIntD(t *testing.T) {
	assert.Equal(t, 7, convert.ToIntD("7", 1))
	assert.Equal(t, 1, convert.ToIntD("", 1))
	assert.Equal(t, 1, convert.ToIntD("x", 1))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 7.3, convert.RoundTo(7.345, 1))
	assert.Equal(t, 8.0, convert.RoundTo(7.96, 1))
}
