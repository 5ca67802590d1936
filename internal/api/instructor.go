package api

import (
	"context"
	"net/http"
	"net/url"
)

const defaultReportLimit = 50

// InstructorStats are the dashboard counters.
type InstructorStats struct {
	ClosedCourses int
	Trained       int
	Pending       int
}

// ReportItem is one entry of the instructor report list.
type ReportItem struct {
	Title         string
	Date          string
	DocumentID    string
	DocumentTitle string
	Subject       string
	Sender        string
	Instructor    string
	RequestEmail  string
	Company       string
	YearName      string
	YearID        string
}

// PendingCourse is a scheduled course still open for the instructor.
type PendingCourse struct {
	CalendarID       string
	Time             string
	Description      string
	Modality         string
	AttendanceClosed int
	GradesClosed     int
	PhotosUploaded   int
	Released         int
}

// Ready reports whether every closing step of the course has been completed.
func (p PendingCourse) Ready() bool {
	return p.AttendanceClosed > 0 && p.GradesClosed > 0 && p.PhotosUploaded > 0
}

// InstructorStats loads the dashboard counters. A body that cannot be read
// yields zero counters.
func (c *Client) InstructorStats(ctx context.Context, token, instructorID string) (InstructorStats, error) {
	q := url.Values{}
	if instructorID != "" {
		q.Set("idcapacitador", instructorID)
	}
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/instructor/stats",
		query:    q,
		token:    token,
		fallback: "No se pudieron cargar las estadísticas",
	})
	if err != nil {
		return InstructorStats{}, err
	}
	v, err := decodeLoose(raw)
	if err != nil {
		return InstructorStats{}, nil
	}
	obj, _ := v.(map[string]any)
	return InstructorStats{
		ClosedCourses: count(obj, "cursosCerradosCount", "capacitaciones"),
		Trained:       count(obj, "capacitadosCount", "capacitados"),
		Pending:       count(obj, "cursosPendientesCount", "pendientes"),
	}, nil
}

// RecentReports lists the latest instructor reports, at most limit entries
// (50 when limit is not positive). A body that is not an array yields none.
func (c *Client) RecentReports(ctx context.Context, token string, limit int) ([]ReportItem, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/listar-solicitudes-instructores",
		token:    token,
		fallback: "No se pudieron cargar las solicitudes",
	})
	if err != nil {
		return nil, err
	}
	v, err := decodeLoose(raw)
	if err != nil {
		return []ReportItem{}, nil
	}
	arr, _ := v.([]any)
	if len(arr) > limit {
		arr = arr[:limit]
	}
	items := make([]ReportItem, 0, len(arr))
	for _, it := range objects(arr) {
		title := text(it, "titulodoc", "titulo")
		if title == "" {
			title = "Informe"
		}
		items = append(items, ReportItem{
			Title:         title,
			Date:          text(it, "fecha", "fecharesultados"),
			DocumentID:    text(it, "iddocumento_cuerpo"),
			DocumentTitle: stringOnly(it, "titulodocdad"),
			Subject:       stringOnly(it, "asuntodad", "asunto"),
			Sender:        stringOnly(it, "remitente"),
			Instructor:    stringOnly(it, "instructor"),
			RequestEmail:  stringOnly(it, "correosolicitud"),
			Company:       stringOnly(it, "razonsoc"),
			YearName:      text(it, "nombanio"),
			YearID:        text(it, "idanio"),
		})
	}
	return items, nil
}

// PendingCourses lists courses the instructor still has to close. The server
// answers either with an array or with an object wrapping it under "$out".
func (c *Client) PendingCourses(ctx context.Context, token, instructorID string) ([]PendingCourse, error) {
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/listar-cursos-pendientes-instructor",
		query:    url.Values{"id": {instructorID}},
		token:    token,
		fallback: "No se pudieron cargar los cursos pendientes",
	})
	if err != nil {
		return nil, err
	}
	v, err := decodeLoose(raw)
	if err != nil {
		return []PendingCourse{}, nil
	}
	var arr []any
	switch t := v.(type) {
	case []any:
		arr = t
	case map[string]any:
		arr, _ = t["$out"].([]any)
	}
	courses := make([]PendingCourse, 0, len(arr))
	for _, it := range objects(arr) {
		courses = append(courses, PendingCourse{
			CalendarID:       text(it, "idecalendcapacitaciones"),
			Time:             text(it, "hora"),
			Description:      text(it, "desccapacitacion"),
			Modality:         text(it, "modalidad"),
			AttendanceClosed: count(it, "asistenciascerradas", "asistencias_cerradas"),
			GradesClosed:     count(it, "notascerradas", "notas_cerradas"),
			PhotosUploaded:   count(it, "fotos_cargadas", "fotoscargadas"),
			Released:         count(it, "cursoliberado", "curso_liberado"),
		})
	}
	return courses, nil
}

// ReportDownloadURL builds the PDF location for a report. Empty ids are left
// out of the query.
func (c *Client) ReportDownloadURL(documentID, yearID string) string {
	return c.endpoint("/informe-instructor", reportQuery(documentID, yearID))
}

// FetchReportPDF downloads the report document.
func (c *Client) FetchReportPDF(ctx context.Context, token, documentID, yearID string) ([]byte, error) {
	return c.do(ctx, call{
		method: http.MethodGet,
		path:   "/informe-instructor",
		query:  reportQuery(documentID, yearID),
		token:  token,
		accept: "application/pdf",
	})
}

func reportQuery(documentID, yearID string) url.Values {
	q := url.Values{}
	if documentID != "" {
		q.Set("iddocumento_cuerpo", documentID)
	}
	if yearID != "" {
		q.Set("idanio", yearID)
	}
	return q
}
