package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeDBFText(t *testing.T) {
	t.Parallel()

	// "Zürich" with the ü as the single ISO 8859-1 byte 0xFC.
	latin1 := "Z\xfcrich"
	assert.Equal(t, "Zürich", decodeDBFText(latin1))

	// Already valid UTF-8 passes through untouched.
	assert.Equal(t, "Zürich", decodeDBFText("Zürich"))
	assert.Equal(t, "850123", decodeDBFText("850123"))
	assert.Equal(t, "", decodeDBFText(""))
}
