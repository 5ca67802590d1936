package mockapi

import "github.com/sstasesores/trainingsoft/internal/api"

// Demo accounts seeded into every Directory.
const (
	DemoCompanyRUC         = "20123456789"
	DemoCompanyPassword    = "acme-2024"
	DemoTraineeDocument    = "70707070"
	DemoInstructorUser     = "jperez"
	DemoInstructorPassword = "capacitador-2024"
	demoCompanyIDEmp       = "70"
	demoInstructorID       = 31
)

func grade(v float64) *float64 { return &v }

func (d *Directory) seed() error {
	if err := d.AddCompany(Company{
		ID:    "7",
		IDEmp: demoCompanyIDEmp,
		RUC:   DemoCompanyRUC,
		Name:  "Acme Industrial S.A.C.",
		Email: "contacto@acme.pe",
	}, DemoCompanyPassword); err != nil {
		return err
	}
	if err := d.AddInstructor(Instructor{
		ID:       demoInstructorID,
		Username: DemoInstructorUser,
		FullName: "Juan Pérez Salas",
		Email:    "jperez@sstasesores.pe",
	}, DemoInstructorPassword); err != nil {
		return err
	}

	d.AddTrainee(demoCompanyIDEmp, api.Trainee{
		ID: "p-1", FirstNames: "Ana", LastNames: "Quispe Huamán", Document: DemoTraineeDocument,
		DocumentType: "DNI", Company: "Acme Industrial S.A.C.", Position: "Supervisora", Email: "ana.quispe@acme.pe",
	},
		api.Training{ID: "c-1", Course: "Trabajo en Altura", StartDate: "2024-03-04", EndDate: "2024-03-05", Hours: 8, Modality: "presencial", Status: "completado", Grade: grade(17), Instructor: "Juan Pérez Salas"},
		api.Training{ID: "c-2", Course: "Primeros Auxilios", StartDate: "2024-06-10", EndDate: "2024-06-10", Hours: 4, Modality: "virtual", Status: "completado", Grade: grade(12.5)},
	)
	d.AddTrainee(demoCompanyIDEmp, api.Trainee{
		ID: "p-2", FirstNames: "Luis", LastNames: "Rojas Campos", Document: "45454545",
		DocumentType: "DNI", Company: "Acme Industrial S.A.C.", Position: "Electricista",
	},
		api.Training{ID: "c-3", Course: "Seguridad Eléctrica", StartDate: "2024-08-01", EndDate: "2024-08-02", Hours: 12, Modality: "in-house", Status: "en_proceso"},
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[demoInstructorID] = []map[string]any{
		{"idecalendcapacitaciones": 901, "hora": "08:00", "desccapacitacion": "Espacios Confinados", "modalidad": "presencial",
			"asistencias_cerradas": 1, "notas_cerradas": 0, "fotoscargadas": 1, "curso_liberado": 0},
		{"idecalendcapacitaciones": "902", "hora": "14:30", "desccapacitacion": "Manejo de Extintores", "modalidad": "virtual",
			"asistenciascerradas": 0, "notascerradas": 0, "fotos_cargadas": 0, "cursoliberado": 0},
	}
	d.reports = []map[string]any{
		{"titulodoc": "Informe de capacitación", "fecharesultados": "2024-03-06", "iddocumento_cuerpo": 1501, "idanio": 5, "nombanio": 2024,
			"razonsoc": "Acme Industrial S.A.C.", "correosolicitud": "contacto@acme.pe", "asuntodad": "Trabajo en Altura", "remitente": "SST Asesores",
			"instructor": "Juan Pérez Salas", "instructor_id": demoInstructorID},
		{"titulo": "Informe de evaluación", "fecha": "2024-06-11", "iddocumento_cuerpo": "1502", "idanio": "5", "nombanio": "2024",
			"razonsoc": "Acme Industrial S.A.C.", "asunto": "Primeros Auxilios", "instructor_id": demoInstructorID},
	}
	d.requests[demoCompanyIDEmp] = []api.TrainingRequest{{
		ID: "SOL-0", CompanyID: demoCompanyIDEmp, TrainingType: "IPERC", Modality: "in-house", Participants: 20,
		RequestedDate: "2024-09-15", PreferredSchedule: "mañana", Area: "Operaciones", ContactName: "Rosa Díaz",
		ContactPhone: "987654321", ContactEmail: "rosa@acme.pe", Status: "aprobada",
	}}
	return nil
}
