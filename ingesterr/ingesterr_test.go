package ingesterr_test

import (
	"errors"
	"testing"

	"github.com/hathitrust/feed/ingesterr"
	"github.com/stretchr/testify/assert"
)

func TestNewAndIs(t *testing.T) {
	err := ingesterr.New(ingesterr.BadField, nil, "field", "sequence_number", "file", "foo.jp2")
	assert.True(t, ingesterr.Is(err, ingesterr.BadField))
	assert.False(t, ingesterr.Is(err, ingesterr.MissingField))
	assert.Equal(t, "sequence_number", err.Fields["field"])
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := ingesterr.New(ingesterr.OperationFailed, cause, "operation", "unpack")
	assert.ErrorIs(t, err, cause)
}

func TestErrorString(t *testing.T) {
	err := ingesterr.New(ingesterr.MissingField, nil, "field", "marc")
	assert.Contains(t, err.Error(), "missing_field")
}
