package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModal(t *testing.T) {
	var zero Modal
	assert.False(t, zero.IsOpen())
	assert.Equal(t, Closed(), zero)
	assert.Equal(t, "closed", zero.Kind().String())

	m := Open(ModalDelete, "p1")
	assert.True(t, m.IsOpen())
	assert.True(t, m.Is(ModalDelete))
	assert.False(t, m.Is(ModalEdit))
	assert.Equal(t, "p1", m.Target())
	assert.Equal(t, "delete", m.Kind().String())

	create := Open(ModalCreate, "")
	assert.True(t, create.IsOpen())
	assert.Empty(t, create.Target())
}
