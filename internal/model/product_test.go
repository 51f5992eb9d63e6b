package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	assert.Equal(t, 100.0, FinalPrice(100, 0))
	assert.Equal(t, 80.0, FinalPrice(100, 20))
	assert.Equal(t, 0.0, FinalPrice(100, 100))
	assert.Equal(t, 66.67, FinalPrice(100, 33.33))
}

func TestFinalPriceClamps(t *testing.T) {
	assert.Equal(t, 0.0, FinalPrice(-5, 10))
	assert.Equal(t, 100.0, FinalPrice(100, -10))
	assert.Equal(t, 0.0, FinalPrice(100, 150))
}
