package services

import (
	"fmt"
	"log"

	"github.com/ouerghi0x/cv-maker-sub000/repository"
)

// ReasonTrialExhausted is the stable denial reason for an authenticated,
// non-subscribed user with no remaining free-trial credits.
const ReasonTrialExhausted = "trial exhausted"

// DocTypeCV is the only document type that consumes a free-trial credit.
const DocTypeCV = "cv"

// EntitlementDecision is the outcome of an authenticated quota check.
type EntitlementDecision struct {
	Allowed bool
	Reason  string
}

// EntitlementService is the authenticated counterpart of the guest ledger:
// a per-account free-trial credit counter gated behind the subscription
// check.
type EntitlementService interface {
	CheckEntitlement(userID uint, docType string) (*EntitlementDecision, error)
	ConsumeCredit(userID uint, docType string)
}

type entitlementService struct {
	userRepo    repository.UserRepository
	freeCVLimit int
}

// NewEntitlementService creates a new instance of EntitlementService.
// freeCVLimit is the number of free "cv" generations per account (1 in
// production).
func NewEntitlementService(userRepo repository.UserRepository, freeCVLimit int) EntitlementService {
	return &entitlementService{userRepo: userRepo, freeCVLimit: freeCVLimit}
}

// CheckEntitlement allows the generation when the user has an active paid
// subscription or, for "cv"-type documents, remaining free-trial credits.
// Non-CV document types never consume the credit and are not gated by it.
func (s *entitlementService) CheckEntitlement(userID uint, docType string) (*EntitlementDecision, error) {
	hasSubscription, err := s.userRepo.HasActiveSubscription(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription for user ID %d: %w", userID, err)
	}
	if hasSubscription {
		return &EntitlementDecision{Allowed: true}, nil
	}

	if docType != DocTypeCV {
		return &EntitlementDecision{Allowed: true}, nil
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user ID %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user ID %d not found", userID)
	}

	if user.FreeTrialUsed >= s.freeCVLimit {
		return &EntitlementDecision{Allowed: false, Reason: ReasonTrialExhausted}, nil
	}
	return &EntitlementDecision{Allowed: true}, nil
}

// ConsumeCredit decrements the remaining free-trial credits by exactly one
// for a non-subscribed user producing a "cv"-type document. Other document
// types and subscribed users leave the counter unchanged. It runs on the
// success path only and never fails the caller's response.
func (s *entitlementService) ConsumeCredit(userID uint, docType string) {
	if docType != DocTypeCV {
		return
	}
	hasSubscription, err := s.userRepo.HasActiveSubscription(userID)
	if err != nil {
		log.Printf("ERROR: [EntitlementService] Could not check subscription before consuming credit for user ID %d: %v", userID, err)
		return
	}
	if hasSubscription {
		return
	}
	if err := s.userRepo.IncrementFreeTrialUsed(userID); err != nil {
		log.Printf("ERROR: [EntitlementService] Failed to consume free trial credit for user ID %d: %v", userID, err)
		return
	}
	log.Printf("INFO: [EntitlementService] Consumed one free trial credit for user ID %d.", userID)
}
