package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sstasesores/trainingsoft/internal/identity"
)

func newLoginCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión como empresa, personal o instructor",
	}
	cmd.AddCommand(newLoginCompanyCommand(e), newLoginPersonalCommand(e), newLoginInstructorCommand(e))
	return cmd
}

func newLoginCompanyCommand(e *env) *cobra.Command {
	var form companyLoginForm
	cmd := &cobra.Command{
		Use:     "company",
		Aliases: []string{"empresa"},
		Short:   "Inicia sesión con RUC y contraseña",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.RUC = normalizeNumeric(form.RUC)
			if err := checkForm(form); err != nil {
				return err
			}
			id, err := e.store.LoginCompany(cmd.Context(), form.RUC, form.Password)
			if err != nil {
				return err
			}
			e.reportLogin(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.RUC, "ruc", "", "RUC de la empresa (11 dígitos)")
	cmd.Flags().StringVar(&form.Password, "password", "", "contraseña")
	return cmd
}

func newLoginPersonalCommand(e *env) *cobra.Command {
	var form personalLoginForm
	cmd := &cobra.Command{
		Use:     "personal",
		Aliases: []string{"trainee"},
		Short:   "Inicia sesión con el número de documento",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Documento = normalizeDocument(form.Documento)
			if err := checkForm(form); err != nil {
				return err
			}
			id, err := e.store.LoginPersonal(cmd.Context(), form.Documento)
			if err != nil {
				return err
			}
			e.reportLogin(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Documento, "documento", "", "número de documento (DNI o CE)")
	return cmd
}

func newLoginInstructorCommand(e *env) *cobra.Command {
	var form instructorLoginForm
	cmd := &cobra.Command{
		Use:   "instructor",
		Short: "Inicia sesión como instructor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Username = normalizeText(form.Username)
			if err := checkForm(form); err != nil {
				return err
			}
			id, err := e.store.LoginInstructor(cmd.Context(), form.Username, form.Password)
			if err != nil {
				return err
			}
			e.reportLogin(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Username, "username", "", "usuario")
	cmd.Flags().StringVar(&form.Password, "password", "", "contraseña")
	return cmd
}

func (e *env) reportLogin(id identity.Identity) {
	e.printer.Success("Sesión iniciada como %s (%s)", id.DisplayName, id.Role.Label())
	if !id.Authenticated() {
		e.printer.Warning("El servidor no devolvió un token de sesión; algunas consultas pueden fallar.")
	}
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Cierra la sesión actual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active := e.store.Flags().Authenticated
			if err := e.store.Logout(cmd.Context()); err != nil {
				return err
			}
			if !active {
				e.printer.Info("No hay una sesión activa")
				return nil
			}
			e.printer.Success("Sesión cerrada")
			return nil
		},
	}
}

type whoamiView struct {
	State       string            `json:"state"`
	ID          string            `json:"id,omitempty"`
	Role        string            `json:"tipo,omitempty"`
	DisplayName string            `json:"nombre,omitempty"`
	Email       string            `json:"email,omitempty"`
	CompanyName string            `json:"empresa,omitempty"`
	TaxID       string            `json:"ruc,omitempty"`
	Document    string            `json:"documento,omitempty"`
	Username    string            `json:"username,omitempty"`
	HasToken    bool              `json:"hasToken"`
	Flags       identity.Flags    `json:"flags"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func newWhoamiCommand(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Muestra la sesión actual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := e.store.Snapshot()
			view := whoamiView{State: snap.State.String(), Flags: snap.Flags}
			if id := snap.Identity; id != nil {
				view.ID = id.ID
				view.Role = string(id.Role)
				view.DisplayName = id.DisplayName
				view.Email = id.Email
				view.CompanyName = id.CompanyName
				view.TaxID = id.TaxID
				view.Document = id.DocumentNumber
				view.Username = id.Username
				view.HasToken = id.Authenticated()
				if attrs := id.Attributes(); len(attrs) > 0 {
					view.Attributes = attrs
				}
			}
			if asJSON {
				enc := json.NewEncoder(e.printer.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			if snap.Identity == nil {
				e.printer.Info("No hay una sesión activa")
				return nil
			}
			id := snap.Identity
			e.printer.Header(id.DisplayName)
			e.printer.Field("Tipo", id.Role.Label())
			e.printer.Field("ID", id.ID)
			e.printer.Field("Email", id.Email)
			e.printer.Field("Empresa", id.CompanyName)
			e.printer.Field("RUC", id.TaxID)
			e.printer.Field("Documento", id.DocumentNumber)
			e.printer.Field("Usuario", id.Username)
			for _, k := range id.AttributeKeys() {
				v, _ := id.Attribute(k)
				e.printer.Field(k, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "salida en JSON")
	return cmd
}

func newPasswordCommand(e *env) *cobra.Command {
	var form passwordForm
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Cambia la contraseña de la empresa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := e.requireRole(isCompany, "empresa")
			if err != nil {
				return err
			}
			if form.Confirm == "" {
				form.Confirm = form.New
			}
			if err := checkForm(form); err != nil {
				return err
			}
			msg, err := e.api.ChangePassword(cmd.Context(), id, form.Current, form.New)
			if err != nil {
				return err
			}
			e.printer.Success("%s", msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Current, "current", "", "contraseña actual")
	cmd.Flags().StringVar(&form.New, "new", "", "nueva contraseña (mínimo 6 caracteres)")
	cmd.Flags().StringVar(&form.Confirm, "confirm", "", "repita la nueva contraseña (por defecto --new)")
	return cmd
}
