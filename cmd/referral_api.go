package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/infrastructure/identity"
	"referralhub/internal/ports"
	"referralhub/internal/usecase/referral"
)

const maxRequestBodyBytes = 1 << 20

type referralAPIService interface {
	CreateReferral(ctx context.Context, input referral.CreateReferralInput) (domainreferral.Referral, error)
	GetReferral(ctx context.Context, referralID string, actor domainreferral.Actor) (domainreferral.Referral, error)
	ListReferrals(ctx context.Context, input referral.ListReferralsInput) ([]domainreferral.Referral, error)
	SoftDeleteReferral(ctx context.Context, referralID string, actor domainreferral.Actor) error
	TransitionStatus(ctx context.Context, input referral.TransitionStatusInput) (referral.StatusSnapshot, error)
	AssignAgent(ctx context.Context, input referral.AssignInput) (referral.AssignResult, error)
	AssignLender(ctx context.Context, input referral.AssignInput) (referral.AssignResult, error)
	AddNote(ctx context.Context, input referral.AddNoteInput) (referral.AddNoteResult, error)
	UpdatePreApproval(ctx context.Context, input referral.UpdatePreApprovalInput) (referral.StatusSnapshot, error)
	RecordContact(ctx context.Context, input referral.RecordContactInput) (domainreferral.ActivityEntry, error)
	ListAudit(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.AuditEntry, error)
	ListActivity(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.ActivityEntry, error)
	ListNotes(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.Note, error)
	ListPayments(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.Payment, error)
	Insights(ctx context.Context, referralID string, actor domainreferral.Actor) (referral.InsightsResult, error)
}

type referralHTTPHandler struct {
	svc      referralAPIService
	verifier ports.IdentityVerifier
	now      func() time.Time
}

type apiErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type statusRequest struct {
	Status          string                          `json:"status"`
	ContractDetails *domainreferral.ContractDetails `json:"contractDetails"`
}

type assignAgentRequest struct {
	AgentID string `json:"agentId"`
}

type assignLenderRequest struct {
	LenderID string `json:"lenderId"`
}

type addNoteRequest struct {
	Content         string   `json:"content"`
	HiddenFromAgent bool     `json:"hiddenFromAgent"`
	HiddenFromMC    bool     `json:"hiddenFromMc"`
	EmailTargets    []string `json:"emailTargets"`
}

type preApprovalRequest struct {
	PreApprovalAmountCents *int64 `json:"preApprovalAmountCents"`
}

type contactRequest struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
}

func newReferralHTTPHandler(svc referralAPIService, verifier ports.IdentityVerifier) http.Handler {
	h := &referralHTTPHandler{
		svc:      svc,
		verifier: verifier,
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(limitRequestBody)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/referrals", h.createReferral)
		r.Get("/referrals", h.listReferrals)
		r.Route("/referrals/{id}", func(r chi.Router) {
			r.Get("/", h.getReferral)
			r.Delete("/", h.deleteReferral)
			r.Post("/status", h.transitionStatus)
			r.Post("/agent", h.assignAgent)
			r.Post("/lender", h.assignLender)
			r.Put("/pre-approval", h.updatePreApproval)
			r.Get("/notes", h.listNotes)
			r.Post("/notes", h.addNote)
			r.Get("/audit", h.listAudit)
			r.Get("/activity", h.listActivity)
			r.Post("/activity", h.recordContact)
			r.Get("/payments", h.listPayments)
			r.Get("/insights", h.insights)
		})
	})
	return r
}

func limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller. Requests without credentials continue
// with the zero actor so the service reports 401 consistently.
func (h *referralHTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := strings.TrimSpace(r.Header.Get("Authorization"))
		if credential == "" {
			if userID := strings.TrimSpace(r.Header.Get("X-Actor-Id")); userID != "" {
				credential = identity.HeaderCredential(r.Header.Get("X-Actor-Role"), userID)
			}
		}
		if credential == "" || h.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := h.verifier.Verify(r.Context(), credential)
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		ctx := ports.WithActor(r.Context(), actor)
		ctx = logging.WithAttrs(ctx, slog.String("actor_id", actor.ID), slog.String("actor_role", string(actor.Role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorOf(r *http.Request) domainreferral.Actor {
	return ports.ActorFromContext(r.Context())
}

func (h *referralHTTPHandler) createReferral(w http.ResponseWriter, r *http.Request) {
	var intake domainreferral.Intake
	if !decodeAPIBody(w, r, &intake) {
		return
	}
	out, err := h.svc.CreateReferral(r.Context(), referral.CreateReferralInput{Intake: intake, Actor: actorOf(r)})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, toReferralView(out, h.now()))
}

func (h *referralHTTPHandler) listReferrals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeAPIError(w, r, domainreferral.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	out, err := h.svc.ListReferrals(r.Context(), referral.ListReferralsInput{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Actor:  actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toReferralViews(out, h.now()))
}

func (h *referralHTTPHandler) getReferral(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetReferral(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toReferralView(out, h.now()))
}

func (h *referralHTTPHandler) deleteReferral(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SoftDeleteReferral(r.Context(), chi.URLParam(r, "id"), actorOf(r)); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *referralHTTPHandler) transitionStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	out, err := h.svc.TransitionStatus(r.Context(), referral.TransitionStatusInput{
		ReferralID:      chi.URLParam(r, "id"),
		Status:          body.Status,
		ContractDetails: body.ContractDetails,
		Actor:           actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func (h *referralHTTPHandler) assignAgent(w http.ResponseWriter, r *http.Request) {
	var body assignAgentRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	out, err := h.svc.AssignAgent(r.Context(), referral.AssignInput{
		ReferralID: chi.URLParam(r, "id"),
		AssigneeID: body.AgentID,
		Actor:      actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func (h *referralHTTPHandler) assignLender(w http.ResponseWriter, r *http.Request) {
	var body assignLenderRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	out, err := h.svc.AssignLender(r.Context(), referral.AssignInput{
		ReferralID: chi.URLParam(r, "id"),
		AssigneeID: body.LenderID,
		Actor:      actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func (h *referralHTTPHandler) updatePreApproval(w http.ResponseWriter, r *http.Request) {
	var body preApprovalRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	if body.PreApprovalAmountCents == nil {
		writeAPIError(w, r, domainreferral.NewValidationError(domainreferral.FieldPreApproval, "is required"))
		return
	}
	out, err := h.svc.UpdatePreApproval(r.Context(), referral.UpdatePreApprovalInput{
		ReferralID:  chi.URLParam(r, "id"),
		AmountCents: *body.PreApprovalAmountCents,
		Actor:       actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func (h *referralHTTPHandler) addNote(w http.ResponseWriter, r *http.Request) {
	var body addNoteRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	out, err := h.svc.AddNote(r.Context(), referral.AddNoteInput{
		ReferralID:      chi.URLParam(r, "id"),
		Content:         body.Content,
		HiddenFromAgent: body.HiddenFromAgent,
		HiddenFromMC:    body.HiddenFromMC,
		EmailTargets:    body.EmailTargets,
		Actor:           actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, toAddNoteView(out))
}

func (h *referralHTTPHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListNotes(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toNoteViews(out))
}

func (h *referralHTTPHandler) listAudit(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAudit(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toAuditViews(out))
}

func (h *referralHTTPHandler) listActivity(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListActivity(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toActivityViews(out))
}

func (h *referralHTTPHandler) recordContact(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if !decodeAPIBody(w, r, &body) {
		return
	}
	out, err := h.svc.RecordContact(r.Context(), referral.RecordContactInput{
		ReferralID: chi.URLParam(r, "id"),
		Channel:    body.Channel,
		Content:    body.Content,
		Actor:      actorOf(r),
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, toActivityView(out))
}

func (h *referralHTTPHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListPayments(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toPaymentViews(out))
}

func (h *referralHTTPHandler) insights(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Insights(r.Context(), chi.URLParam(r, "id"), actorOf(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, out)
}

func decodeAPIBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeAPIError(w, r, bodyValidationError(err))
		return false
	}
	return true
}

const bodyField = "body"

// bodyValidationError names the offending JSON field when the decoder can
// tell, and the body as a whole otherwise.
func bodyValidationError(err error) *domainreferral.ValidationError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = bodyField
		}
		return domainreferral.NewValidationError(field, "must be "+jsonKind(typeErr.Type.Kind().String()))
	case errors.As(err, &tooLarge):
		return domainreferral.NewValidationError(bodyField, "exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
	case errors.Is(err, io.EOF):
		return domainreferral.NewValidationError(bodyField, "required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return domainreferral.NewValidationError(bodyField, "malformed JSON")
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return domainreferral.NewValidationError(strings.Trim(name, `"`), "unknown field")
	}
	return domainreferral.NewValidationError(bodyField, err.Error())
}

func jsonKind(goKind string) string {
	switch {
	case strings.HasPrefix(goKind, "int"), strings.HasPrefix(goKind, "uint"), strings.HasPrefix(goKind, "float"):
		return "a number"
	case goKind == "bool":
		return "a boolean"
	case goKind == "string":
		return "a string"
	case goKind == "slice", goKind == "array":
		return "an array"
	default:
		return "an object"
	}
}

// apiStatus maps the error taxonomy to HTTP status codes.
func apiStatus(err error) int {
	var validation *domainreferral.ValidationError
	switch {
	case errors.Is(err, domainreferral.ErrUnauthenticated), errors.Is(err, ports.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domainreferral.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainreferral.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.Is(err, domainreferral.ErrComputationInvariant),
		errors.Is(err, domainreferral.ErrInvalidStatus),
		errors.Is(err, domainreferral.ErrInvalidAssignment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrLockNotObtained):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := apiStatus(err)
	body := apiErrorResponse{Error: err.Error()}

	var validation *domainreferral.ValidationError
	if errors.As(err, &validation) {
		body.Error = "validation failed"
		body.Fields = validation.Fields
	}
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "referral api request failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", errs.Loggable(err)),
		)
		body.Error = "internal error"
	}
	writeAPIJSON(w, status, body)
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
