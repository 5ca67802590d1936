package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sstasesores/trainingsoft/internal/api"
	"github.com/sstasesores/trainingsoft/internal/output"
)

func newInstructorCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructor",
		Short: "Panel del instructor",
	}
	cmd.AddCommand(newDashboardCommand(e), newPendingCommand(e), newReportCommand(e))
	return cmd
}

func newDashboardCommand(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Resumen de capacitaciones, cursos pendientes e informes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isInstructor, "instructor")
			if err != nil {
				return err
			}

			var (
				stats   api.InstructorStats
				pending []api.PendingCourse
				reports []api.ReportItem
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				stats, err = e.api.InstructorStats(ctx, id.SessionToken, id.ID)
				return err
			})
			g.Go(func() error {
				var err error
				pending, err = e.api.PendingCourses(ctx, id.SessionToken, id.ID)
				return err
			})
			g.Go(func() error {
				var err error
				reports, err = e.api.RecentReports(ctx, id.SessionToken, limit)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			e.printer.Header("Bienvenido, " + id.DisplayName)
			e.printer.Field("Capacitaciones", strconv.Itoa(stats.ClosedCourses))
			e.printer.Field("Capacitados", strconv.Itoa(stats.Trained))
			e.printer.Field("Pendientes", strconv.Itoa(stats.Pending))

			e.printer.Header("Cursos pendientes")
			if err := e.renderPending(pending); err != nil {
				return err
			}
			e.printer.Header("Informes recientes")
			return e.renderReports(reports)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "número máximo de informes")
	return cmd
}

func newPendingCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Lista los cursos pendientes de cierre",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isInstructor, "instructor")
			if err != nil {
				return err
			}
			courses, err := e.api.PendingCourses(cmd.Context(), id.SessionToken, id.ID)
			if err != nil {
				return err
			}
			return e.renderPending(courses)
		},
	}
}

func newReportCommand(e *env) *cobra.Command {
	var document, year, out string
	var urlOnly bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Descarga el informe PDF de una solicitud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isInstructor, "instructor")
			if err != nil {
				return err
			}
			document = normalizeNumeric(document)
			year = normalizeNumeric(year)
			if document == "" {
				return &output.CLIError{Summary: "Indique --document", ExitCode: output.ExitUsageError}
			}
			if urlOnly {
				e.printer.Print("%s", e.api.ReportDownloadURL(document, year))
				return nil
			}
			pdf, err := e.api.FetchReportPDF(cmd.Context(), id.SessionToken, document, year)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("informe-%s-%s.pdf", document, year)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("cli: report dir: %w", err)
				}
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("cli: write report: %w", err)
			}
			e.printer.Success("Informe guardado en %s (%d bytes)", out, len(pdf))
			return nil
		},
	}
	cmd.Flags().StringVar(&document, "document", "", "id del documento (iddocumento_cuerpo)")
	cmd.Flags().StringVar(&year, "year", "", "id del año (idanio)")
	cmd.Flags().StringVar(&out, "out", "", "archivo de salida")
	cmd.Flags().BoolVar(&urlOnly, "url", false, "solo muestra la URL de descarga")
	return cmd
}

func (e *env) renderPending(courses []api.PendingCourse) error {
	if len(courses) == 0 {
		e.printer.Info("No hay cursos pendientes")
		return nil
	}
	t := output.NewTable(e.printer.Out(), "ID", "Hora", "Capacitación", "Modalidad", "Asistencia", "Notas", "Fotos", "Liberado")
	for _, c := range courses {
		t.AddRow(c.CalendarID, c.Time, c.Description, c.Modality,
			e.printer.Badge(c.AttendanceClosed > 0),
			e.printer.Badge(c.GradesClosed > 0),
			e.printer.Badge(c.PhotosUploaded > 0),
			e.printer.Badge(c.Released > 0))
	}
	return t.Render()
}

func (e *env) renderReports(reports []api.ReportItem) error {
	if len(reports) == 0 {
		e.printer.Info("No hay informes recientes")
		return nil
	}
	t := output.NewTable(e.printer.Out(), "Documento", "Año", "Título", "Empresa", "Fecha")
	for _, r := range reports {
		t.AddRow(r.DocumentID, r.YearName, r.Title, r.Company, r.Date)
	}
	return t.Render()
}
