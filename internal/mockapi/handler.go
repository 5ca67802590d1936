// Package mockapi serves a local stand-in for the TrainingSoft backend so the
// client can be exercised without the production API.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sstasesores/trainingsoft/internal/api"
	"github.com/sstasesores/trainingsoft/internal/auth"
	"github.com/sstasesores/trainingsoft/internal/identity"
	"github.com/sstasesores/trainingsoft/internal/platform/httpx"
)

// Messages returned to clients.
const (
	msgCompanyRejected    = "RUC o contraseña incorrectos"
	msgInstructorRejected = "Usuario o contraseña incorrectos"
	msgMissingToken       = "Token no proporcionado"
	msgBadToken           = "Token inválido o expirado"
	msgForbidden          = "Acceso denegado"
	msgWrongPassword      = "La contraseña actual es incorrecta"
	msgShortPassword      = "La nueva contraseña debe tener al menos 6 caracteres"
	msgPasswordChanged    = "Contraseña actualizada correctamente"
	msgReportNotFound     = "Informe no encontrado"
	msgCompanyMismatch    = "La empresa no corresponde a la sesión"
)

type claimsKey struct{}

// Handler serves the backend routes used by the client.
type Handler struct {
	logger    *slog.Logger
	dir       *Directory
	tokens    *TokenIssuer
	recorder  auth.Recorder
	validator *validator.Validate
}

// NewHandler constructs a Handler. recorder may be nil.
func NewHandler(logger *slog.Logger, dir *Directory, tokens *TokenIssuer, recorder auth.Recorder) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		logger:    logger,
		dir:       dir,
		tokens:    tokens,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers the backend routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.loginCompany)
	r.Post("/auth/login-personal", h.loginPersonal)
	r.Post("/auth/login-instructor", h.loginInstructor)
	r.Get("/capacitaciones/personal/{documento}", h.personalTrainings)

	r.Group(func(r chi.Router) {
		r.Use(h.requireRole(identity.RoleCompany))
		r.Post("/change-password", h.changePassword)
		r.Get("/capacitados", h.searchTrainees)
		r.Get("/solicitudes/empresa/{id}", h.companyRequests)
		r.Post("/solicitudes", h.createRequest)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireRole(identity.RoleInstructor))
		r.Get("/instructor/stats", h.instructorStats)
		r.Get("/listar-solicitudes-instructores", h.listReports)
		r.Get("/listar-cursos-pendientes-instructor", h.pendingCourses)
		r.Get("/informe-instructor", h.reportPDF)
	})
}

type companyLogin struct {
	RUC      string `json:"ruc" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type personalLogin struct {
	Document string `json:"documento" validate:"required"`
}

type instructorLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) loginCompany(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var form companyLogin
	if !h.decodeForm(w, r, &form, msgCompanyRejected) {
		h.observe(identity.RoleCompany, "invalid", start)
		return
	}
	c, err := h.dir.AuthenticateCompany(form.RUC, form.Password)
	if err != nil {
		h.observe(identity.RoleCompany, "rejected", start)
		httpx.Problem(w, http.StatusUnauthorized, msgCompanyRejected)
		return
	}
	token, err := h.tokens.Issue(c.IDEmp, string(identity.RoleCompany))
	if err != nil {
		h.internalError(w, "issue company token", err)
		return
	}
	h.observe(identity.RoleCompany, "success", start)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       c.ID,
			"idemp":    c.IDEmp,
			"razonsoc": c.Name,
			"ruc":      c.RUC,
			"email":    c.Email,
			"tipo":     string(identity.RoleCompany),
		},
	})
}

func (h *Handler) loginPersonal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var form personalLogin
	if !h.decodeForm(w, r, &form, auth.MsgTraineeFallback) {
		h.observe(identity.RoleTrainee, "invalid", start)
		return
	}
	t, err := h.dir.Trainee(form.Document)
	if err != nil {
		h.observe(identity.RoleTrainee, "rejected", start)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	token, err := h.tokens.Issue(t.Document, string(identity.RoleTrainee))
	if err != nil {
		h.internalError(w, "issue trainee token", err)
		return
	}
	h.observe(identity.RoleTrainee, "success", start)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"jwt": token,
		"user": map[string]any{
			"idcapacitado": t.ID,
			"nombres":      t.FullName(),
			"documento":    t.Document,
			"correo":       t.Email,
			"empresa":      t.Company,
		},
	})
}

func (h *Handler) loginInstructor(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var form instructorLogin
	if !h.decodeForm(w, r, &form, msgInstructorRejected) {
		h.observe(identity.RoleInstructor, "invalid", start)
		return
	}
	in, err := h.dir.AuthenticateInstructor(form.Username, form.Password)
	if err != nil {
		h.observe(identity.RoleInstructor, "rejected", start)
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": msgInstructorRejected})
		return
	}
	token, err := h.tokens.Issue(strconv.Itoa(in.ID), string(identity.RoleInstructor))
	if err != nil {
		h.internalError(w, "issue instructor token", err)
		return
	}
	h.observe(identity.RoleInstructor, "success", start)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id_capacitador":  in.ID,
			"nombre_completo": in.FullName,
			"usuario":         in.Username,
			"correo":          in.Email,
			"access_token":    token,
		},
	})
}

func (h *Handler) personalTrainings(w http.ResponseWriter, r *http.Request) {
	doc := chi.URLParam(r, "documento")
	trainings, err := h.dir.Trainings(doc)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound, "No se encontraron capacitaciones")
		return
	}
	httpx.JSON(w, http.StatusOK, trainings)
}

type changePasswordForm struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	CompanyID       string `json:"idemp" validate:"required"`
	TaxID           string `json:"ruc" validate:"required"`
}

// changePassword answers 200 with ok=false for credential problems, the way
// the production backend does.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var form changePasswordForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err, "Solicitud inválida")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		msg := "Datos incompletos"
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "NewPassword" && fe.Tag() == "min" {
					msg = msgShortPassword
				}
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": false, "message": msg})
		return
	}
	if form.CompanyID != claimsFrom(r.Context()).Subject {
		httpx.RespondError(w, httpx.ErrForbidden, msgCompanyMismatch)
		return
	}
	err := h.dir.ChangeCompanyPassword(form.CompanyID, form.TaxID, form.CurrentPassword, form.NewPassword)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": false, "message": msgWrongPassword})
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound, "Empresa no encontrada")
	case err != nil:
		h.internalError(w, "change password", err)
	default:
		h.logger.Info("company password changed", slog.String("idemp", form.CompanyID))
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "message": msgPasswordChanged})
	}
}

func (h *Handler) searchTrainees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID := q.Get("empresaId")
	if !h.ownsCompany(w, r, companyID) {
		return
	}
	httpx.JSON(w, http.StatusOK, h.dir.Search(companyID, api.TraineeFilter{
		Name:     q.Get("nombre"),
		Document: q.Get("documento"),
		Course:   q.Get("curso"),
	}))
}

func (h *Handler) companyRequests(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	if !h.ownsCompany(w, r, companyID) {
		return
	}
	httpx.JSON(w, http.StatusOK, h.dir.Requests(companyID))
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req api.TrainingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err, "Solicitud inválida")
		return
	}
	req.Status = ""
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			h.internalError(w, "validate request", err)
			return
		}
		names := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			names = append(names, fe.Field())
		}
		sort.Strings(names)
		httpx.RespondError(w, httpx.ErrValidation, "Campos inválidos: "+strings.Join(names, ", "))
		return
	}
	if !h.ownsCompany(w, r, req.CompanyID) {
		return
	}
	stored := h.dir.AddRequest(req)
	h.logger.Info("training request filed", slog.String("id", stored.ID), slog.String("idemp", stored.CompanyID))
	httpx.JSON(w, http.StatusCreated, stored)
}

func (h *Handler) instructorStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.instructorID(w, r, "idcapacitador")
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.dir.Stats(id))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.dir.Reports())
}

// pendingCourses wraps the rows under "$out" like the stored procedure
// endpoint in production.
func (h *Handler) pendingCourses(w http.ResponseWriter, r *http.Request) {
	id, ok := h.instructorID(w, r, "id")
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"$out": h.dir.PendingCourses(id)})
}

func (h *Handler) reportPDF(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("iddocumento_cuerpo")
	if docID == "" {
		httpx.RespondError(w, httpx.ErrValidation, "Falta iddocumento_cuerpo")
		return
	}
	var found map[string]any
	for _, row := range h.dir.Reports() {
		if fmt.Sprint(row["iddocumento_cuerpo"]) == docID {
			found = row
			break
		}
	}
	if found == nil {
		httpx.RespondError(w, httpx.ErrNotFound, msgReportNotFound)
		return
	}
	title, _ := found["titulodoc"].(string)
	if title == "" {
		title = "Informe"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="informe-%s.pdf"`, docID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderPDF(title + " " + docID))
}

// requireRole admits requests whose token carries role. The token is read
// from the Authorization bearer header or from x-auth-token.
func (h *Handler) requireRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized, msgMissingToken)
				return
			}
			claims, err := h.tokens.Verify(raw)
			if err != nil {
				h.logger.Debug("token rejected", slog.Any("error", err))
				httpx.RespondError(w, httpx.ErrUnauthorized, msgBadToken)
				return
			}
			if claims.Role != string(role) {
				httpx.RespondError(w, httpx.ErrForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("x-auth-token"))
}

func claimsFrom(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return c
	}
	return &Claims{}
}

func (h *Handler) ownsCompany(w http.ResponseWriter, r *http.Request, companyID string) bool {
	if companyID == "" || companyID != claimsFrom(r.Context()).Subject {
		httpx.RespondError(w, httpx.ErrForbidden, msgCompanyMismatch)
		return false
	}
	return true
}

// instructorID reads the instructor id from query param key, defaulting to
// the token subject.
func (h *Handler) instructorID(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		raw = claimsFrom(r.Context()).Subject
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation, "Identificador de instructor inválido")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, form any, msg string) bool {
	if err := httpx.DecodeJSON(r, form); err != nil {
		httpx.RespondError(w, err, msg)
		return false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, httpx.ErrValidation, msg)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err, "")
}

func (h *Handler) observe(role identity.Role, outcome string, start time.Time) {
	if h.recorder == nil {
		return
	}
	h.recorder.ObserveLogin(string(role), outcome, time.Since(start))
}
