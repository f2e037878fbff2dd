package services

import (
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Principal is an authenticated identity decoded from a verified session
// token.
type Principal struct {
	UserID uint
	Email  string
}

// Identity is the result of classifying an inbound request: either an
// authenticated Principal or an anonymous visitor identified by its
// network-address key plus an advisory device fingerprint.
type Identity struct {
	IsAuthenticated bool
	Principal       *Principal
	VisitorKey      string
	Fingerprint     string
}

// TokenVerifier decodes and verifies a session token. Implemented by
// AuthService; kept narrow so the resolver can be tested in isolation.
type TokenVerifier interface {
	VerifyToken(token string) (*Principal, error)
}

// IdentityService classifies inbound requests and derives the anonymous
// visitor identifiers.
type IdentityService interface {
	DeriveVisitorKey(headers http.Header) string
	DeriveDeviceFingerprint(userAgent, acceptLanguage string) string
	Resolve(r *http.Request) Identity
}

// AuthCookieName is the cookie carrying the session token.
const AuthCookieName = "auth"

type identityService struct {
	verifier TokenVerifier
}

// NewIdentityService creates a new instance of IdentityService.
func NewIdentityService(verifier TokenVerifier) IdentityService {
	return &identityService{verifier: verifier}
}

// DeriveVisitorKey extracts the caller's network address from proxy
// headers in a fixed priority order, falling back to loopback when none
// are present. It is pure and never fails.
func (s *identityService) DeriveVisitorKey(headers http.Header) string {
	if forwardedFor := headers.Get("X-Forwarded-For"); forwardedFor != "" {
		return strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	if realIP := headers.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	if cfIP := headers.Get("Cf-Connecting-Ip"); cfIP != "" { // Cloudflare
		return cfIP
	}
	if clientIP := headers.Get("X-Client-Ip"); clientIP != "" {
		return clientIP
	}
	return "127.0.0.1"
}

// DeriveDeviceFingerprint hashes the user agent and accept-language into a
// short base-36 string. The hash is deterministic and order-sensitive;
// absent inputs are treated as empty strings. The value is advisory only
// and is never used as a uniqueness key.
func (s *identityService) DeriveDeviceFingerprint(userAgent, acceptLanguage string) string {
	str := userAgent + "|" + acceptLanguage

	// 32-bit string hash: h = h*31 + ch, wrapping like a JS bitwise int.
	var hash int32
	for _, ch := range str {
		hash = hash<<5 - hash + int32(ch)
	}
	v := int64(hash)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

// Resolve classifies the request. Any failure to find, verify or parse the
// session token routes the caller to Anonymous; verification failure is a
// routing decision here, never an error surfaced upward.
func (s *identityService) Resolve(r *http.Request) Identity {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		principal, verifyErr := s.verifier.VerifyToken(cookie.Value)
		if verifyErr == nil && principal != nil {
			return Identity{IsAuthenticated: true, Principal: principal}
		}
		log.Printf("INFO: [IdentityService] Session token rejected (%v); treating caller as guest.", verifyErr)
	}

	key := s.DeriveVisitorKey(r.Header)
	fingerprint := s.DeriveDeviceFingerprint(r.Header.Get("User-Agent"), r.Header.Get("Accept-Language"))
	return Identity{
		IsAuthenticated: false,
		VisitorKey:      key,
		Fingerprint:     fingerprint,
	}
}
