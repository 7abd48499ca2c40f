package enginerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_CarriesKindAndMessage(t *testing.T) {
	err := New(OrderRejected, "broker declined")
	assert.Equal(t, "ORDER_REJECTED: broker declined", err.Error())
	assert.True(t, Is(err, OrderRejected))
	assert.False(t, Is(err, GatewayUnavailable))
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(GatewayUnavailable, "account snapshot failed", cause)
	assert.Contains(t, err.Error(), "dial tcp: timeout")
	assert.ErrorIs(t, err, cause)
}

func TestIs_FalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), InvariantBreach))
}
