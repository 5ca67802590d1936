package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sstasesores/trainingsoft/internal/api"
	"github.com/sstasesores/trainingsoft/internal/identity"
	"github.com/sstasesores/trainingsoft/internal/output"
)

// companyID is the company key the REST API expects: the idemp attribute
// when the login response carried one, else the identity id.
func companyID(id identity.Identity) string {
	if v, ok := id.Attribute("idemp"); ok && v != "" {
		return v
	}
	return id.ID
}

func newCompanyCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "company",
		Aliases: []string{"empresa"},
		Short:   "Consultas y solicitudes de la empresa",
	}
	cmd.AddCommand(newSearchCommand(e), newRequestsCommand(e), newRequestTrainingCommand(e))
	return cmd
}

func newSearchCommand(e *env) *cobra.Command {
	var filter api.TraineeFilter
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Busca capacitados de la empresa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isCompany, "empresa")
			if err != nil {
				return err
			}
			filter.Name = normalizeText(filter.Name)
			filter.Document = normalizeDocument(filter.Document)
			filter.Course = normalizeText(filter.Course)

			results, err := e.api.SearchTrainees(cmd.Context(), id.SessionToken, companyID(id), filter)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				e.printer.Info("No se encontraron resultados")
				return nil
			}
			t := output.NewTable(e.printer.Out(), "Documento", "Capacitado", "Capacitación", "Fecha", "Nota")
			for _, r := range results {
				t.AddRow(r.Trainee.Document, r.Trainee.FullName(), r.Course, r.EndDate, e.printer.Grade(r.Grade))
			}
			if err := t.Render(); err != nil {
				return err
			}
			suffix := "s"
			if len(results) == 1 {
				suffix = ""
			}
			e.printer.Print("%d resultado%s encontrado%s", len(results), suffix, suffix)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Name, "nombre", "", "nombre del capacitado")
	cmd.Flags().StringVar(&filter.Document, "documento", "", "documento del capacitado")
	cmd.Flags().StringVar(&filter.Course, "curso", "", "nombre del curso")
	return cmd
}

func newRequestsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "Lista las solicitudes de capacitación de la empresa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isCompany, "empresa")
			if err != nil {
				return err
			}
			requests, err := e.api.CompanyRequests(cmd.Context(), id.SessionToken, companyID(id))
			if err != nil {
				return err
			}
			if len(requests) == 0 {
				e.printer.Info("No hay solicitudes registradas")
				return nil
			}
			t := output.NewTable(e.printer.Out(), "ID", "Capacitación", "Modalidad", "Participantes", "Fecha", "Estado")
			for _, r := range requests {
				t.AddRow(r.ID, r.TrainingType, r.Modality, strconv.Itoa(r.Participants), r.RequestedDate, r.Status)
			}
			return t.Render()
		},
	}
}

func newRequestTrainingCommand(e *env) *cobra.Command {
	var req api.TrainingRequest
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Registra una solicitud de capacitación",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isCompany, "empresa")
			if err != nil {
				return err
			}
			req.CompanyID = companyID(id)
			req.ContactPhone = normalizeNumeric(req.ContactPhone)
			if req.ContactEmail == "" {
				req.ContactEmail = id.Email
			}
			created, err := e.api.CreateTrainingRequest(cmd.Context(), id.SessionToken, req)
			if err != nil {
				return err
			}
			ref := created.ID
			if ref == "" {
				ref = "sin número"
			}
			e.printer.Success("Solicitud enviada correctamente (%s). Nos pondremos en contacto pronto.", ref)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.TrainingType, "tipo", "", "tipo de capacitación")
	f.StringVar(&req.Modality, "modalidad", "presencial", "presencial, virtual o in-house")
	f.IntVar(&req.Participants, "participantes", 0, "número de participantes")
	f.StringVar(&req.RequestedDate, "fecha", "", "fecha solicitada (AAAA-MM-DD)")
	f.StringVar(&req.PreferredSchedule, "horario", "", "horario preferido")
	f.StringVar(&req.Area, "area", "", "área de la empresa")
	f.StringVar(&req.ContactName, "contacto", "", "nombre del contacto")
	f.StringVar(&req.ContactPhone, "telefono", "", "teléfono del contacto")
	f.StringVar(&req.ContactEmail, "email", "", "email del contacto (por defecto el de la sesión)")
	f.StringVar(&req.Notes, "observaciones", "", "observaciones")
	return cmd
}
