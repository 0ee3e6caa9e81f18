package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresent(t *testing.T) {
	v := present(true, nil)
	assert.Equal(t, "connected", v.state)
	assert.True(t, v.canDisconnect)
	assert.False(t, v.canConnect)

	v = present(false, nil)
	assert.Equal(t, "disconnected", v.state)
	assert.True(t, v.canConnect)
	assert.False(t, v.canDisconnect)

	v = present(false, errors.New("connection refused"))
	assert.Equal(t, "error", v.state)
	assert.False(t, v.canConnect)
	assert.False(t, v.canDisconnect)
}
