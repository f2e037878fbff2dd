package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ouerghi0x/cv-maker-sub000/models"
)

func TestEntitlementService_CheckEntitlement(t *testing.T) {
	t.Run("Subscriber is always allowed without touching the trial counter", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(true, nil)

		decision, err := svc.CheckEntitlement(7, DocTypeCV)

		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
		repo.AssertNotCalled(t, "FindByID", mock.Anything)
	})

	t.Run("Non-subscriber with an unused trial may generate a CV", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, nil)
		repo.On("FindByID", uint(7)).Return(&models.User{ID: 7, FreeTrialUsed: 0}, nil)

		decision, err := svc.CheckEntitlement(7, DocTypeCV)

		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("Exhausted trial denies a second CV", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, nil)
		repo.On("FindByID", uint(7)).Return(&models.User{ID: 7, FreeTrialUsed: 1}, nil)

		decision, err := svc.CheckEntitlement(7, DocTypeCV)

		assert.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonTrialExhausted, decision.Reason)
	})

	t.Run("Cover letters are not gated by the CV trial", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, nil)

		decision, err := svc.CheckEntitlement(7, DocTypeCoverLetter)

		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
		repo.AssertNotCalled(t, "FindByID", mock.Anything)
	})

	t.Run("Subscription lookup failure propagates", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, errors.New("db down"))

		decision, err := svc.CheckEntitlement(7, DocTypeCV)

		assert.Nil(t, decision)
		assert.Error(t, err)
	})

	t.Run("Unknown user is an error", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(99)).Return(false, nil)
		repo.On("FindByID", uint(99)).Return(nil, nil)

		decision, err := svc.CheckEntitlement(99, DocTypeCV)

		assert.Nil(t, decision)
		assert.Error(t, err)
	})
}

func TestEntitlementService_ConsumeCredit(t *testing.T) {
	t.Run("Non-subscriber CV generation consumes exactly one credit", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, nil)
		repo.On("IncrementFreeTrialUsed", uint(7)).Return(nil)

		svc.ConsumeCredit(7, DocTypeCV)

		repo.AssertNumberOfCalls(t, "IncrementFreeTrialUsed", 1)
	})

	t.Run("Cover letters never consume a credit", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		svc.ConsumeCredit(7, DocTypeCoverLetter)

		repo.AssertNotCalled(t, "IncrementFreeTrialUsed", mock.Anything)
	})

	t.Run("Subscribers never consume a credit", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(true, nil)

		svc.ConsumeCredit(7, DocTypeCV)

		repo.AssertNotCalled(t, "IncrementFreeTrialUsed", mock.Anything)
	})

	t.Run("Increment failure is logged, not surfaced", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewEntitlementService(repo, 1)

		repo.On("HasActiveSubscription", uint(7)).Return(false, nil)
		repo.On("IncrementFreeTrialUsed", uint(7)).Return(errors.New("db down"))

		assert.NotPanics(t, func() { svc.ConsumeCredit(7, DocTypeCV) })
	})
}
