// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/ikusare/pkg/pointer"
)

func TestNonZero(t *testing.T) {
	assert.Nil(t, pointer.NonZero(0.0))
	assert.Nil(t, pointer.NonZero(""))
	assert.Equal(t, 6.8, *pointer.NonZero(6.8))
	assert.Equal(t, "/p.jpg", *pointer.NonZero("/p.jpg"))
}

func TestTo(t *testing.T) {
	year := pointer.To(2014)
	*year++
	assert.Equal(t, 2015, *pointer.To(*year))
}
