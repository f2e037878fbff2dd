package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ouerghi0x/cv-maker-sub000/models"
	"github.com/ouerghi0x/cv-maker-sub000/repository"
)

// ReasonGuestAlreadyCreated is the stable denial reason for a visitor who
// has already spent their free generation inside the current window.
const ReasonGuestAlreadyCreated = "Guest has already created a CV"

// ErrStoreUnavailable marks a quota check that could not reach the record
// store. Callers must fail closed (deny) on it; it is logged distinctly
// from an ordinary quota denial so operators can tell the two apart.
var ErrStoreUnavailable = errors.New("guest quota store unavailable")

// QuotaDecision is the outcome of a guest quota check.
type QuotaDecision struct {
	Allowed bool
	Reason  string
	Usage   *models.GuestUsage
}

// GuestQuotaService is the authoritative "may this anonymous visitor
// generate a document" decision and its single state transition. State per
// visitor key: no live record (fresh) -> available -> consumed, with
// expiry returning the key to fresh. Correctness rests on the store's
// unique index and set-based delete, never on in-process locks.
type GuestQuotaService interface {
	CheckQuota(ip, fingerprint string) (*QuotaDecision, error)
	MarkConsumed(ip string)
	SweepExpired(now time.Time) (int64, error)
	CacheLocation(ip, location string)
}

type guestQuotaService struct {
	repo   repository.GuestUsageRepository
	window time.Duration
	now    func() time.Time
}

// NewGuestQuotaService creates a new instance of GuestQuotaService.
// window is the rolling free-use window (24h in production).
func NewGuestQuotaService(repo repository.GuestUsageRepository, window time.Duration) GuestQuotaService {
	return &guestQuotaService{repo: repo, window: window, now: time.Now}
}

// CheckQuota sweeps expired records, find-or-creates the visitor's record
// and evaluates it. A record past its expiry that the sweep has not yet
// reclaimed is treated as dead on the spot: it is deleted and a fresh one
// created, identical to a never-seen key.
//
// The check is deliberately read-before-write rather than an atomic
// decrement: the gated action takes seconds and must not hold a lock. Two
// concurrent first-time requests may both be admitted; the record
// converges to consumed as soon as either completes, and a third admission
// is impossible.
func (s *guestQuotaService) CheckQuota(ip, fingerprint string) (*QuotaDecision, error) {
	if ip == "" {
		return nil, errors.New("visitor key cannot be empty")
	}
	now := s.now()

	// Opportunistic reclamation; its failure alone does not decide the
	// quota question, the find-or-create below does.
	if _, err := s.repo.DeleteExpired(now); err != nil {
		log.Printf("WARN: [GuestQuotaService] Expiry sweep failed during quota check for %s: %v", ip, err)
	}

	usage, err := s.findOrCreate(ip, fingerprint, now)
	if err != nil {
		log.Printf("ERROR: [GuestQuotaService] STORE UNAVAILABLE: quota check for %s failed closed: %v", ip, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Stale-but-present record: expiry is checked on read, the sweep is
	// just reclamation.
	if !usage.ExpiresAt.After(now) {
		if err := s.repo.DeleteByIP(ip); err != nil {
			log.Printf("ERROR: [GuestQuotaService] STORE UNAVAILABLE: failed to reclaim expired record for %s: %v", ip, err)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		usage, err = s.findOrCreate(ip, fingerprint, now)
		if err != nil {
			log.Printf("ERROR: [GuestQuotaService] STORE UNAVAILABLE: quota check for %s failed closed: %v", ip, err)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if usage.HasCreatedCV {
		return &QuotaDecision{Allowed: false, Reason: ReasonGuestAlreadyCreated, Usage: usage}, nil
	}
	return &QuotaDecision{Allowed: true, Usage: usage}, nil
}

func (s *guestQuotaService) findOrCreate(ip, fingerprint string, now time.Time) (*models.GuestUsage, error) {
	fresh := &models.GuestUsage{
		IP:        ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.window),
	}
	if fingerprint != "" {
		fresh.Fingerprint = &fingerprint
	}
	return s.repo.CreateIfAbsent(fresh)
}

// MarkConsumed records that the visitor completed their free generation.
// It is idempotent and never propagates an error: by the time it runs the
// pipeline has already produced a result, and failing here must not undo
// the user-visible response.
func (s *guestQuotaService) MarkConsumed(ip string) {
	if ip == "" {
		return
	}
	if err := s.repo.MarkCVCreated(ip); err != nil {
		log.Printf("ERROR: [GuestQuotaService] Failed to mark free use consumed for %s: %v", ip, err)
		return
	}
	log.Printf("INFO: [GuestQuotaService] Marked free use consumed for %s.", ip)
}

// SweepExpired deletes every record whose window has closed and returns
// the count. Safe to run concurrently with itself and with CheckQuota.
func (s *guestQuotaService) SweepExpired(now time.Time) (int64, error) {
	return s.repo.DeleteExpired(now)
}

// CacheLocation stores the best-effort geo string on the visitor's record
// for later display. Failures only cost the enrichment.
func (s *guestQuotaService) CacheLocation(ip, location string) {
	if ip == "" || location == "" {
		return
	}
	if err := s.repo.SetLocation(ip, location); err != nil {
		log.Printf("WARN: [GuestQuotaService] Failed to cache location for %s: %v", ip, err)
	}
}
