package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================
// Status Graph Tests
// ============================================

func TestAuthorize_AdminChainInSequence(t *testing.T) {
	steps := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusShipped},
		{StatusShipped, StatusDelivered},
	}
	for _, step := range steps {
		assert.NoError(t, Authorize(RoleAdmin, step.from, step.to),
			"admin %s -> %s", step.from, step.to)
	}
}

func TestAuthorize_BackwardTransitionRejected(t *testing.T) {
	err := Authorize(RoleAdmin, StatusProcessing, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAuthorize_SkippingChainRejectedForAdmin(t *testing.T) {
	err := Authorize(RoleAdmin, StatusPending, StatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAuthorize_TerminalStatesRejectEverything(t *testing.T) {
	targets := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		for _, to := range targets {
			err := Authorize(RoleAdmin, terminal, to)
			assert.ErrorIs(t, err, ErrInvalidTransition, "from %s to %s", terminal, to)
		}
	}
}

func TestAuthorize_AdminCanCancelAnyNonTerminal(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusProcessing, StatusShipped} {
		assert.NoError(t, Authorize(RoleAdmin, from, StatusCancelled), "from %s", from)
	}
}

// ============================================
// Authority Table Tests
// ============================================

func TestAuthorize_RiderCompletesFromProcessing(t *testing.T) {
	assert.NoError(t, Authorize(RoleRider, StatusProcessing, StatusDelivered))
}

func TestAuthorize_RiderCancelsFromProcessing(t *testing.T) {
	assert.NoError(t, Authorize(RoleRider, StatusProcessing, StatusCancelled))
}

func TestAuthorize_RiderDeniedOutsidePool(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusShipped, StatusDelivered},
		{StatusPending, StatusCancelled},
		{StatusShipped, StatusCancelled},
	}
	for _, c := range cases {
		err := Authorize(RoleRider, c.from, c.to)
		assert.ErrorIs(t, err, ErrPermissionDenied, "rider %s -> %s", c.from, c.to)
	}
}

func TestAuthorize_CustomerIsReadOnly(t *testing.T) {
	for from, targets := range validTransitions {
		for _, to := range targets {
			err := Authorize(RoleCustomer, from, to)
			assert.ErrorIs(t, err, ErrPermissionDenied, "customer %s -> %s", from, to)
		}
	}
}

func TestAuthorize_UnknownStatus(t *testing.T) {
	err := Authorize(RoleAdmin, Status("bogus"), StatusProcessing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status("bogus").IsValid())
}
