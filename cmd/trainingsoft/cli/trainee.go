package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sstasesores/trainingsoft/internal/output"
)

func newTraineeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trainee",
		Aliases: []string{"personal"},
		Short:   "Consultas del personal capacitado",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "trainings",
		Short: "Lista las capacitaciones asociadas a su documento",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isTrainee, "personal")
			if err != nil {
				return err
			}
			document := id.DocumentNumber
			if document == "" {
				document = id.ID
			}
			trainings, err := e.api.PersonalTrainings(cmd.Context(), document)
			if err != nil {
				return err
			}
			e.printer.Header(id.DisplayName + " • DNI " + document)
			if len(trainings) == 0 {
				e.printer.Info("Aún no se encontraron capacitaciones asociadas a tu documento.")
				return nil
			}
			t := output.NewTable(e.printer.Out(), "Curso", "Inicio", "Fin", "Horas", "Estado", "Nota")
			for _, tr := range trainings {
				t.AddRow(tr.Course, tr.StartDate, tr.EndDate,
					strconv.FormatFloat(tr.Hours, 'f', -1, 64),
					tr.Status, e.printer.Grade(tr.Grade))
			}
			return t.Render()
		},
	})
	return cmd
}
