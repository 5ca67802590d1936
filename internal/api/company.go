package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest marks a training request rejected before sending.
var ErrInvalidRequest = errors.New("api: invalid training request")

// TrainingRequest is a company's request for a new training session.
type TrainingRequest struct {
	ID                string `json:"id,omitempty"`
	CompanyID         string `json:"empresaId" validate:"required"`
	TrainingType      string `json:"tipoCapacitacion" validate:"required"`
	Modality          string `json:"modalidad" validate:"required,oneof=presencial virtual in-house"`
	Participants      int    `json:"numeroParticipantes" validate:"required,min=1,max=500"`
	RequestedDate     string `json:"fechaSolicitada" validate:"required,datetime=2006-01-02"`
	PreferredSchedule string `json:"horarioPreferido" validate:"required"`
	Area              string `json:"area" validate:"required"`
	ContactName       string `json:"contactoNombre" validate:"required"`
	ContactPhone      string `json:"contactoTelefono" validate:"required,min=6,max=20"`
	ContactEmail      string `json:"contactoEmail" validate:"required,email"`
	Notes             string `json:"observaciones,omitempty"`
	Status            string `json:"estado,omitempty" validate:"omitempty,oneof=pendiente aprobada rechazada completada"`
	CreatedAt         string `json:"fechaCreacion,omitempty"`
}

// Trainee is a person enrolled by a company.
type Trainee struct {
	ID           string `json:"id"`
	FirstNames   string `json:"nombres"`
	LastNames    string `json:"apellidos"`
	Document     string `json:"documento"`
	DocumentType string `json:"tipoDocumento"`
	Company      string `json:"empresa"`
	Position     string `json:"cargo,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"telefono,omitempty"`
}

// FullName joins names and surnames.
func (t Trainee) FullName() string {
	return strings.TrimSpace(t.FirstNames + " " + t.LastNames)
}

// Training is one course taken by a trainee.
type Training struct {
	ID             string   `json:"id"`
	TraineeID      string   `json:"capacitadoId"`
	Course         string   `json:"curso"`
	StartDate      string   `json:"fechaInicio"`
	EndDate        string   `json:"fechaFin"`
	Hours          float64  `json:"horas"`
	Modality       string   `json:"modalidad"`
	Status         string   `json:"estado"`
	CertificateURL string   `json:"certificadoUrl,omitempty"`
	Grade          *float64 `json:"nota,omitempty"`
	Instructor     string   `json:"instructor,omitempty"`
}

// TrainingDetail is a Training together with its trainee.
type TrainingDetail struct {
	Training
	Trainee Trainee `json:"capacitado"`
}

// TraineeFilter narrows SearchTrainees. Empty fields are not sent.
type TraineeFilter struct {
	Name     string
	Document string
	Course   string
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "datos inválidos: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Validate checks a training request without sending it.
func (c *Client) Validate(req TrainingRequest) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("api: validate request: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

// SearchTrainees returns the trainings of a company's trainees matching filter.
func (c *Client) SearchTrainees(ctx context.Context, token, companyID string, filter TraineeFilter) ([]TrainingDetail, error) {
	q := url.Values{"empresaId": {companyID}}
	if filter.Name != "" {
		q.Set("nombre", filter.Name)
	}
	if filter.Document != "" {
		q.Set("documento", filter.Document)
	}
	if filter.Course != "" {
		q.Set("curso", filter.Course)
	}
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/capacitados",
		query:    q,
		token:    token,
		fallback: "Error al buscar capacitados",
	})
	if err != nil {
		return nil, err
	}
	var out []TrainingDetail
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompanyRequests lists the training requests filed by a company.
func (c *Client) CompanyRequests(ctx context.Context, token, companyID string) ([]TrainingRequest, error) {
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/solicitudes/empresa/" + url.PathEscape(companyID),
		token:    token,
		fallback: "Error al obtener solicitudes",
	})
	if err != nil {
		return nil, err
	}
	var out []TrainingRequest
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTrainingRequest validates and files a training request, returning
// the stored version.
func (c *Client) CreateTrainingRequest(ctx context.Context, token string, req TrainingRequest) (TrainingRequest, error) {
	if err := c.Validate(req); err != nil {
		return TrainingRequest{}, err
	}
	raw, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/solicitudes",
		token:    token,
		body:     req,
		fallback: "Error al crear solicitud",
	})
	if err != nil {
		return TrainingRequest{}, err
	}
	var out TrainingRequest
	if err := decodeInto(raw, &out); err != nil {
		return TrainingRequest{}, err
	}
	return out, nil
}
