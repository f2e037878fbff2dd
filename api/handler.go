package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ouerghi0x/cv-maker-sub000/models"
	"github.com/ouerghi0x/cv-maker-sub000/repository"
	"github.com/ouerghi0x/cv-maker-sub000/services"
	"github.com/ouerghi0x/cv-maker-sub000/utils"
)

// Display masking policy for guest identifiers. Any mask that never
// reveals the full key satisfies the intent; these fix the widths.
const (
	ipMaskPrefixLen      = 8
	fingerprintPrefixLen = 8
)

// ReasonQuotaUnavailable is returned when the guest check fails closed
// because the record store cannot be reached. Distinct from an ordinary
// quota denial so clients and operators can tell the two apart.
const ReasonQuotaUnavailable = "quota check unavailable"

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	identityService    services.IdentityService
	quotaService       services.GuestQuotaService
	entitlementService services.EntitlementService
	authService        services.AuthService
	geoService         services.GeoService
	generatorService   services.GeneratorService
	cvRepo             repository.CVRepository
	userRepo           repository.UserRepository
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(
	identityService services.IdentityService,
	quotaService services.GuestQuotaService,
	entitlementService services.EntitlementService,
	authService services.AuthService,
	geoService services.GeoService,
	generatorService services.GeneratorService,
	cvRepo repository.CVRepository,
	userRepo repository.UserRepository,
) *APIHandler {
	return &APIHandler{
		identityService:    identityService,
		quotaService:       quotaService,
		entitlementService: entitlementService,
		authService:        authService,
		geoService:         geoService,
		generatorService:   generatorService,
		cvRepo:             cvRepo,
		userRepo:           userRepo,
	}
}

// GuestInfo is the display-safe slice of a visitor's usage record. The
// visitor key is partially masked and never returned in full.
type GuestInfo struct {
	IP           string     `json:"ip"`
	Fingerprint  string     `json:"fingerprint"`
	Location     string     `json:"location,omitempty"`
	HasCreatedCV bool       `json:"hasCreatedCV"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// GuestStatusHandler reports whether the caller may create a document.
// GET /api/guest/status
func (h *APIHandler) GuestStatusHandler(c *gin.Context) {
	identity := h.identityService.Resolve(c.Request)

	if identity.IsAuthenticated {
		c.JSON(http.StatusOK, gin.H{
			"isAuthenticated": true,
			"canCreateCV":     true,
		})
		return
	}

	decision, err := h.quotaService.CheckQuota(identity.VisitorKey, identity.Fingerprint)
	if err != nil {
		// Fail closed: an unreachable store denies rather than allowing
		// unbounded free usage during an outage.
		log.Printf("ERROR: [API] Guest status check failed closed for %s: %v", utils.MaskKey(identity.VisitorKey, ipMaskPrefixLen), err)
		c.JSON(http.StatusOK, gin.H{
			"isAuthenticated": false,
			"canCreateCV":     false,
			"reason":          ReasonQuotaUnavailable,
		})
		return
	}

	usage := decision.Usage
	location := ""
	if usage.Location != nil {
		location = *usage.Location
	}
	if location == "" {
		location = h.geoService.Lookup(c.Request.Context(), identity.VisitorKey)
		if location != "" {
			h.quotaService.CacheLocation(identity.VisitorKey, location)
		}
	}

	response := gin.H{
		"isAuthenticated": false,
		"canCreateCV":     decision.Allowed,
		"guestInfo": GuestInfo{
			IP:           utils.MaskKey(identity.VisitorKey, ipMaskPrefixLen),
			Fingerprint:  utils.Prefix(identity.Fingerprint, fingerprintPrefixLen),
			Location:     location,
			HasCreatedCV: usage.HasCreatedCV,
			CreatedAt:    &usage.CreatedAt,
			ExpiresAt:    &usage.ExpiresAt,
		},
	}
	if decision.Reason != "" {
		response["reason"] = decision.Reason
	}
	c.JSON(http.StatusOK, response)
}

// GenerateDocumentRequest is the body of POST /api/generate. Data carries
// the serialized form payload; DocType defaults to "cv"; Prompt optionally
// overrides the per-type default.
type GenerateDocumentRequest struct {
	Data    string `json:"data" binding:"required"`
	DocType string `json:"docType,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

// cvPayload mirrors the form wizard's section structure for persistence.
type cvPayload struct {
	CVType         string          `json:"cvType"`
	JobPost        string          `json:"jobPost"`
	PersonalInfo   json.RawMessage `json:"personalInfo"`
	Education      json.RawMessage `json:"education"`
	Experience     json.RawMessage `json:"experience"`
	Skills         json.RawMessage `json:"skills"`
	Projects       json.RawMessage `json:"projects"`
	Certifications json.RawMessage `json:"certifications"`
	Languages      json.RawMessage `json:"languages"`
}

// GenerateHandler runs identity resolution, the quota decision, the
// document pipeline, and on success the quota consumption — in that
// order. The quota is never consumed when the pipeline fails or is
// aborted.
// POST /api/generate
func (h *APIHandler) GenerateHandler(c *gin.Context) {
	var req GenerateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, `Missing or invalid input data. Please provide a string for "data".`, err)
		return
	}
	docType := req.DocType
	if docType == "" {
		docType = services.DocTypeCV
	}

	identity := h.identityService.Resolve(c.Request)

	if identity.IsAuthenticated {
		decision, err := h.entitlementService.CheckEntitlement(identity.Principal.UserID, docType)
		if err != nil {
			utils.SendJSONError(c, http.StatusInternalServerError, "Could not verify generation quota.", err)
			return
		}
		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":        "Free trial limit reached",
				"message":      "Your free trial generation has been used. Please upgrade to continue creating CVs.",
				"requiresAuth": true,
				"reason":       decision.Reason,
			})
			return
		}
	} else {
		decision, err := h.quotaService.CheckQuota(identity.VisitorKey, identity.Fingerprint)
		if err != nil {
			// Fail closed, with a reason distinct from "already used".
			log.Printf("ERROR: [API] Guest quota check failed closed for %s: %v", utils.MaskKey(identity.VisitorKey, ipMaskPrefixLen), err)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":        "Guest usage could not be verified",
				"requiresAuth": true,
				"reason":       ReasonQuotaUnavailable,
			})
			return
		}
		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":        "Guest usage limit reached",
				"message":      "You have already created a CV as a guest. Please sign up or log in to continue creating CVs.",
				"requiresAuth": true,
				"reason":       decision.Reason,
			})
			return
		}
	}

	doc, err := h.generatorService.GenerateDocument(c.Request.Context(), services.GenerateRequest{
		DocType: docType,
		Data:    req.Data,
		Prompt:  req.Prompt,
	})
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to generate the document.", err, err.Error())
		return
	}

	// Success path only: persist and consume.
	if identity.IsAuthenticated {
		h.saveCVForUser(identity.Principal.UserID, req.Data)
		h.entitlementService.ConsumeCredit(identity.Principal.UserID, docType)
	} else {
		h.quotaService.MarkConsumed(identity.VisitorKey)
	}

	c.Header("Content-Disposition", "attachment; filename=cv.pdf")
	c.Data(http.StatusOK, "application/pdf", doc.PDF)
}

func (h *APIHandler) saveCVForUser(userID uint, data string) {
	var payload cvPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		log.Printf("WARN: [API] Could not parse CV payload for user ID %d, skipping persistence: %v", userID, err)
		return
	}
	cv := &models.CV{
		UserID:         userID,
		CVType:         payload.CVType,
		JobPost:        payload.JobPost,
		PersonalInfo:   string(payload.PersonalInfo),
		Education:      string(payload.Education),
		Experience:     string(payload.Experience),
		Skills:         string(payload.Skills),
		Projects:       string(payload.Projects),
		Certifications: string(payload.Certifications),
		Languages:      string(payload.Languages),
	}
	if err := h.cvRepo.SaveCV(cv); err != nil {
		log.Printf("ERROR: [API] Failed to persist CV for user ID %d: %v", userID, err)
	}
}

// CleanupGuestsHandler deletes expired guest usage records on demand,
// intended for a cron trigger. Idempotent; a second immediate call removes
// zero additional records.
// POST|GET /api/admin/cleanup-guests
func (h *APIHandler) CleanupGuestsHandler(c *gin.Context) {
	count, err := h.quotaService.SweepExpired(time.Now())
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to cleanup expired guests.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": count,
		"message": "Expired guest records cleaned up successfully",
	})
}

// EmailJobRequest is the body of POST /api/email-job.
type EmailJobRequest struct {
	Data string `json:"data" binding:"required"`
}

// EmailJobHandler generates a structured job-application email. Delivery
// is out of scope; the client sends the result through its own channel.
// POST /api/email-job
func (h *APIHandler) EmailJobHandler(c *gin.Context) {
	var req EmailJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}

	email, err := h.generatorService.GenerateEmail(c.Request.Context(), req.Data)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to generate email content.", err, err.Error())
		return
	}
	c.JSON(http.StatusOK, email)
}

// CVHistoryHandler returns the authenticated user's saved CVs; guests get
// an empty list rather than an error.
// GET /api/user/cv-history
func (h *APIHandler) CVHistoryHandler(c *gin.Context) {
	identity := h.identityService.Resolve(c.Request)
	if !identity.IsAuthenticated {
		c.JSON(http.StatusOK, gin.H{"cvs": []*models.CV{}})
		return
	}

	cvs, err := h.cvRepo.GetCVsByUserID(identity.Principal.UserID)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to fetch CV history.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cvs": cvs})
}
