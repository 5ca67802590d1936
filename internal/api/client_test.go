package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sstasesores/trainingsoft/internal/auth"
	"github.com/sstasesores/trainingsoft/internal/identity"
)

type request struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	payload map[string]any
}

func newServer(t *testing.T, status int, body string) (*Client, *request) {
	t.Helper()
	got := &request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.Query()
		got.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.payload)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/"), got
}

func companyIdentity(t *testing.T, token string) identity.Identity {
	t.Helper()
	id, err := identity.New(identity.Fields{
		ID:           "7",
		Role:         identity.RoleCompany,
		TaxID:        "20123456789",
		SessionToken: token,
		Attributes:   map[string]string{"idemp": "70"},
	})
	require.NoError(t, err)
	return id
}

func TestAuthenticatedCallsSendBothHeaders(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"pendientes":1}`)
	_, err := c.InstructorStats(context.Background(), "tok", "31")
	require.NoError(t, err)

	require.Equal(t, "Bearer tok", got.header.Get("Authorization"))
	require.Equal(t, "tok", got.header.Get("x-auth-token"))
	_, err = uuid.Parse(got.header.Get("X-Request-ID"))
	require.NoError(t, err)
	require.Equal(t, "31", got.query.Get("idcapacitador"))
}

func TestPublicCallSendsNoToken(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `[]`)
	_, err := c.PersonalTrainings(context.Background(), "70707070")
	require.NoError(t, err)
	require.Equal(t, "/capacitaciones/personal/70707070", got.path)
	require.Empty(t, got.header.Get("Authorization"))
	require.Empty(t, got.header.Get("x-auth-token"))
}

func TestFailureMessages(t *testing.T) {
	c, _ := newServer(t, http.StatusForbidden, `{"message":"token vencido"}`)
	_, err := c.RecentReports(context.Background(), "tok", 0)
	require.Equal(t, "token vencido", err.Error())
	require.Equal(t, http.StatusForbidden, StatusOf(err))

	c, _ = newServer(t, http.StatusInternalServerError, "")
	_, err = c.PendingCourses(context.Background(), "tok", "31")
	require.Equal(t, "No se pudieron cargar los cursos pendientes", err.Error())

	c, _ = newServer(t, http.StatusBadGateway, "")
	_, err = c.FetchReportPDF(context.Background(), "tok", "1", "2")
	require.Equal(t, "Error 502", err.Error())
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := NewClient(srv.URL).PersonalTrainings(context.Background(), "1")
	require.Equal(t, auth.MsgNetworkUnreachable, err.Error())
	require.Zero(t, StatusOf(err))
}

func TestInstructorStatsCandidates(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"cursosPendientesCount":"3","capacitaciones":12,"capacitadosCount":240,"capacitados":1}`)
	stats, err := c.InstructorStats(context.Background(), "tok", "")
	require.NoError(t, err)
	require.Equal(t, InstructorStats{ClosedCourses: 12, Trained: 240, Pending: 3}, stats)

	c, _ = newServer(t, http.StatusOK, `not json`)
	stats, err = c.InstructorStats(context.Background(), "tok", "")
	require.NoError(t, err)
	require.Zero(t, stats)

	c, _ = newServer(t, http.StatusOK, `{"pendientes":"muchos"}`)
	stats, err = c.InstructorStats(context.Background(), "tok", "")
	require.NoError(t, err)
	require.Zero(t, stats.Pending)
}

func TestRecentReportsMapping(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `[
		{"titulodoc":"Informe final","fecharesultados":"2024-05-01","iddocumento_cuerpo":15,"idanio":3,"nombanio":2024,
		 "razonsoc":"Acme","correosolicitud":"a@acme.pe","asunto":"Cierre","remitente":"RRHH","instructor":"Juan","titulodocdad":7},
		{},
		"garbage",
		{"titulo":"Otro","fecha":"2024-06-01"}
	]`)
	items, err := c.RecentReports(context.Background(), "tok", 0)
	require.NoError(t, err)
	require.Equal(t, "/listar-solicitudes-instructores", got.path)
	require.Len(t, items, 3)

	require.Equal(t, ReportItem{
		Title:        "Informe final",
		Date:         "2024-05-01",
		DocumentID:   "15",
		Subject:      "Cierre",
		Sender:       "RRHH",
		Instructor:   "Juan",
		RequestEmail: "a@acme.pe",
		Company:      "Acme",
		YearName:     "2024",
		YearID:       "3",
	}, items[0])
	require.Equal(t, "Informe", items[1].Title)
	require.Equal(t, "Otro", items[2].Title)
}

func TestRecentReportsLimit(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `[{"titulo":"a"},{"titulo":"b"},{"titulo":"c"}]`)
	items, err := c.RecentReports(context.Background(), "tok", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	c, _ = newServer(t, http.StatusOK, `{"rows":[]}`)
	items, err = c.RecentReports(context.Background(), "tok", 2)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestPendingCoursesShapes(t *testing.T) {
	for _, body := range []string{
		`[{"idecalendcapacitaciones":9,"hora":"08:00","desccapacitacion":"Altura","modalidad":"presencial","asistencias_cerradas":1,"notascerradas":"1","fotoscargadas":1,"curso_liberado":0}]`,
		`{"$out":[{"idecalendcapacitaciones":"9","hora":"08:00","desccapacitacion":"Altura","modalidad":"presencial","asistenciascerradas":1,"notas_cerradas":1,"fotos_cargadas":1}]}`,
	} {
		c, got := newServer(t, http.StatusOK, body)
		courses, err := c.PendingCourses(context.Background(), "tok", "31")
		require.NoError(t, err, body)
		require.Equal(t, "31", got.query.Get("id"))
		require.Equal(t, []PendingCourse{{
			CalendarID:       "9",
			Time:             "08:00",
			Description:      "Altura",
			Modality:         "presencial",
			AttendanceClosed: 1,
			GradesClosed:     1,
			PhotosUploaded:   1,
		}}, courses, body)
		require.True(t, courses[0].Ready())
	}
}

func TestReportDownloadURL(t *testing.T) {
	c := NewClient("https://api.example.pe/api/")
	require.Equal(t, "https://api.example.pe/api/informe-instructor?idanio=3&iddocumento_cuerpo=15", c.ReportDownloadURL("15", "3"))
	require.Equal(t, "https://api.example.pe/api/informe-instructor", c.ReportDownloadURL("", ""))
}

func TestFetchReportPDF(t *testing.T) {
	c, got := newServer(t, http.StatusOK, "%PDF-1.4")
	pdf, err := c.FetchReportPDF(context.Background(), "tok", "15", "3")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4"), pdf)
	require.Equal(t, "application/pdf", got.header.Get("Accept"))
	require.Equal(t, "15", got.query.Get("iddocumento_cuerpo"))
}

func TestChangePassword(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"message":"Listo"}`)
	msg, err := c.ChangePassword(context.Background(), companyIdentity(t, "tok"), "old", "new-secret")
	require.NoError(t, err)
	require.Equal(t, "Listo", msg)
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "/change-password", got.path)
	require.Equal(t, map[string]any{
		"currentPassword": "old",
		"newPassword":     "new-secret",
		"idemp":           "70",
		"ruc":             "20123456789",
	}, got.payload)
}

func TestChangePasswordFailureInSuccessStatus(t *testing.T) {
	for _, body := range []string{`{"ok":false,"message":"Contraseña actual incorrecta"}`, `{"status":"error","message":"Contraseña actual incorrecta"}`} {
		c, _ := newServer(t, http.StatusOK, body)
		_, err := c.ChangePassword(context.Background(), companyIdentity(t, "tok"), "old", "new")
		require.Error(t, err, body)
		require.Equal(t, "Contraseña actual incorrecta", err.Error())
	}

	c, _ := newServer(t, http.StatusOK, `{"status":"fail"}`)
	_, err := c.ChangePassword(context.Background(), companyIdentity(t, "tok"), "old", "new")
	require.Equal(t, msgPasswordFailed, err.Error())

	c, _ = newServer(t, http.StatusOK, ``)
	msg, err := c.ChangePassword(context.Background(), companyIdentity(t, "tok"), "old", "new")
	require.NoError(t, err)
	require.Equal(t, msgPasswordChanged, msg)
}

func TestChangePasswordRefusedForOtherRoles(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	trainee, err := identity.New(identity.Fields{ID: "1", Role: identity.RoleTrainee, SessionToken: "t"})
	require.NoError(t, err)
	_, err = c.ChangePassword(context.Background(), trainee, "a", "b")
	require.ErrorIs(t, err, ErrRoleNotPermitted)

	_, err = c.ChangePassword(context.Background(), companyIdentity(t, ""), "a", "b")
	require.ErrorIs(t, err, ErrMissingToken)
}

func validRequest() TrainingRequest {
	return TrainingRequest{
		CompanyID:         "70",
		TrainingType:      "Trabajos en altura",
		Modality:          "in-house",
		Participants:      12,
		RequestedDate:     "2025-03-10",
		PreferredSchedule: "mañana",
		Area:              "Operaciones",
		ContactName:       "Rosa Díaz",
		ContactPhone:      "987654321",
		ContactEmail:      "rosa@acme.pe",
	}
}

func TestCreateTrainingRequest(t *testing.T) {
	c, got := newServer(t, http.StatusCreated, `{"id":"r-1","empresaId":"70","tipoCapacitacion":"Trabajos en altura","modalidad":"in-house","numeroParticipantes":12,"estado":"pendiente"}`)
	created, err := c.CreateTrainingRequest(context.Background(), "tok", validRequest())
	require.NoError(t, err)
	require.Equal(t, "r-1", created.ID)
	require.Equal(t, "pendiente", created.Status)
	require.Equal(t, "/solicitudes", got.path)
	require.Equal(t, "in-house", got.payload["modalidad"])
	require.EqualValues(t, 12, got.payload["numeroParticipantes"])
}

func TestCreateTrainingRequestValidation(t *testing.T) {
	c, got := newServer(t, http.StatusCreated, `{}`)
	req := validRequest()
	req.Modality = "remoto"
	req.ContactEmail = "no-es-correo"
	req.Participants = 0

	_, err := c.CreateTrainingRequest(context.Background(), "tok", req)
	require.ErrorIs(t, err, ErrInvalidRequest)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, map[string]string{
		"Modality":     "oneof",
		"ContactEmail": "email",
		"Participants": "required",
	}, verr.Fields)
	require.Empty(t, got.path, "nothing sent")
}

func TestSearchTrainees(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `[{"id":"c1","capacitadoId":"p1","curso":"Altura","horas":8,"estado":"completado","nota":17.5,
		"capacitado":{"id":"p1","nombres":"Ana","apellidos":"Quispe","documento":"70707070","tipoDocumento":"DNI","empresa":"Acme"}}]`)
	res, err := c.SearchTrainees(context.Background(), "tok", "70", TraineeFilter{Course: "Altura"})
	require.NoError(t, err)
	require.Equal(t, "70", got.query.Get("empresaId"))
	require.Equal(t, "Altura", got.query.Get("curso"))
	require.False(t, got.query.Has("nombre"))
	require.Len(t, res, 1)
	require.Equal(t, "Ana Quispe", res[0].Trainee.FullName())
	require.Equal(t, "Altura", res[0].Course)
	require.InDelta(t, 17.5, *res[0].Grade, 0.001)
}

func TestCompanyRequestsMalformed(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"not":"an array"}`)
	_, err := c.CompanyRequests(context.Background(), "tok", "70")
	require.Equal(t, "/solicitudes/empresa/70", got.path)
	require.Equal(t, auth.MsgMalformed, err.Error())
}
