package gateway

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFailedEntity(t *testing.T) {
	err := errors.Wrap(NewEntityError("pm1", ErrDeclined), "can't save customer c1")
	assert.Equal(t, "pm1", FailedEntity(err))
	assert.Empty(t, FailedEntity(errors.New("timeout")))
	assert.Empty(t, FailedEntity(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(errors.Wrap(NewEntityError("cus_1", ErrNotFound), "load")))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(NewEntityError("cus_1", ErrDeclined)))
	assert.False(t, IsNotFound(nil))
}

func TestIsRejected(t *testing.T) {
	declined := NewEntityError("pm1", errors.Wrap(ErrDeclined, "insufficient funds"))
	assert.True(t, IsRejected(errors.Wrap(declined, "can't save customer c1")))
	assert.True(t, IsRejected(NewEntityError("t1", ErrNotRefundable)))
	assert.False(t, IsRejected(NewEntityError("sub1", ErrTerminal)))
	assert.False(t, IsRejected(errors.New("connection reset")))
	assert.False(t, IsRejected(nil))
}
