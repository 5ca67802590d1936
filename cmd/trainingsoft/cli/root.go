// Package cli implements the trainingsoft command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sstasesores/trainingsoft/internal/api"
	"github.com/sstasesores/trainingsoft/internal/app"
	"github.com/sstasesores/trainingsoft/internal/auth"
	"github.com/sstasesores/trainingsoft/internal/identity"
	"github.com/sstasesores/trainingsoft/internal/observability"
	"github.com/sstasesores/trainingsoft/internal/output"
	"github.com/sstasesores/trainingsoft/internal/session"
	"github.com/sstasesores/trainingsoft/internal/storage"
)

// Options wires the command tree. Zero values fall back to the process
// environment.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Config skips LoadConfig when set.
	Config *app.Config
	// Storage replaces the configured backend; it is not closed.
	Storage    storage.Storage
	HTTPClient *http.Client
	// Recorder receives login observations; defaults to process-local
	// Prometheus collectors.
	Recorder auth.Recorder
}

type globalFlags struct {
	apiURL      string
	driver      string
	storagePath string
	ephemeral   bool
	noColor     bool
	verbose     bool
}

// env is the per-invocation state built before any command runs.
type env struct {
	opts    Options
	flags   globalFlags
	cfg     *app.Config
	logger  *slog.Logger
	printer *output.Printer
	backend storage.Backend
	store   *session.Store
	api     *api.Client
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	e := &env{opts: opts}
	defer e.close()

	root := newRootCommand(e)
	root.SetArgs(args)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}
	printer := e.printer
	if printer == nil {
		printer = output.NewPrinter(opts.Stdout, opts.Stderr, false)
	}
	cliErr := classify(err)
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "trainingsoft",
		Short: "Cliente de TrainingSoft (SST Asesores)",
		Long: `trainingsoft es el cliente de línea de comandos del sistema de gestión de
capacitaciones de SST Asesores.

Ejemplos:
  trainingsoft login company --ruc 20123456789 --password ****
  trainingsoft login personal --documento 70707070
  trainingsoft whoami
  trainingsoft instructor dashboard
  trainingsoft logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context())
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.apiURL, "api", "", "URL base del API (por defecto API_BASE_URL)")
	pf.StringVar(&e.flags.driver, "storage", "", "almacenamiento de la sesión: file, redis, postgres o memory")
	pf.StringVar(&e.flags.storagePath, "storage-path", "", "directorio de la sesión para el almacenamiento file")
	pf.BoolVar(&e.flags.ephemeral, "ephemeral", false, "mantiene la sesión solo en memoria durante este comando")
	pf.BoolVar(&e.flags.noColor, "no-color", false, "desactiva los colores")
	pf.BoolVarP(&e.flags.verbose, "verbose", "v", false, "registro detallado en stderr")

	root.AddCommand(
		newLoginCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newPasswordCommand(e),
		newInstructorCommand(e),
		newTraineeCommand(e),
		newCompanyCommand(e),
	)
	return root
}

func (e *env) setup(ctx context.Context) error {
	cfg := e.opts.Config
	if cfg == nil {
		loaded, err := app.LoadConfig()
		if err != nil {
			return &output.CLIError{Summary: "Configuración inválida", Detail: err.Error(), ExitCode: output.ExitConfig, Err: err}
		}
		cfg = loaded
	}
	if e.flags.apiURL != "" {
		cfg.APIBaseURL = e.flags.apiURL
	}
	if e.flags.driver != "" {
		cfg.StorageDriver = e.flags.driver
	}
	if e.flags.storagePath != "" {
		cfg.StoragePath = e.flags.storagePath
	}
	if e.flags.ephemeral {
		cfg.StorageDriver = string(storage.DriverMemory)
	}
	if e.flags.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return &output.CLIError{Summary: "Configuración inválida", Detail: err.Error(), ExitCode: output.ExitConfig, Err: err}
	}
	e.cfg = cfg
	e.logger = app.NewLogger(cfg, e.opts.Stderr)
	e.printer = output.NewPrinter(e.opts.Stdout, e.opts.Stderr, output.ColorsEnabled(e.flags.noColor))

	st := e.opts.Storage
	if st == nil {
		backend, err := storage.Open(ctx, cfg.StorageConfig())
		if err != nil {
			return &output.CLIError{
				Summary:    "No se pudo abrir el almacenamiento de la sesión",
				Detail:     err.Error(),
				Suggestion: "revise STORAGE_DRIVER o use --storage file",
				ExitCode:   output.ExitConfig,
				Err:        err,
			}
		}
		e.backend = backend
		st = backend
	}

	httpClient := e.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.APITimeout}
	}
	recorder := e.opts.Recorder
	if recorder == nil {
		recorder = observability.NewMetrics()
	}
	resolver := auth.NewResolver(cfg.APIBaseURL,
		auth.WithHTTPClient(httpClient),
		auth.WithLogger(e.logger),
		auth.WithRecorder(recorder))
	e.api = api.NewClient(cfg.APIBaseURL, api.WithHTTPClient(httpClient), api.WithLogger(e.logger))
	e.store = session.NewStore(st, resolver, session.WithLogger(e.logger), session.WithKey(cfg.StorageKey))

	outcome := e.store.Hydrate(ctx)
	e.logger.Debug("session hydrated",
		slog.String("outcome", outcome.String()),
		slog.String("storage", cfg.StorageDriver))
	if outcome == session.HydrationDegraded {
		e.printer.Warning("La sesión guardada no se pudo leer; inicie sesión nuevamente.")
	}
	return nil
}

func (e *env) close() {
	if e.backend == nil {
		return
	}
	if err := e.backend.Close(); err != nil && e.logger != nil {
		e.logger.Warn("close storage", slog.Any("error", err))
	}
}

var errNotLoggedIn = errors.New("cli: no active session")

// requireRole returns the current identity when the derived flags satisfy
// allowed.
func (e *env) requireRole(allowed func(identity.Flags) bool, label string) (identity.Identity, error) {
	flags := e.store.Flags()
	if !flags.Authenticated {
		return identity.Identity{}, &output.CLIError{
			Summary:    "No hay una sesión activa",
			Suggestion: "ejecute trainingsoft login",
			ExitCode:   output.ExitAuthError,
			Err:        errNotLoggedIn,
		}
	}
	if !allowed(flags) {
		return identity.Identity{}, &output.CLIError{
			Summary:  fmt.Sprintf("Esta acción requiere una sesión de %s", label),
			ExitCode: output.ExitAuthError,
			Err:      api.ErrRoleNotPermitted,
		}
	}
	id, _ := e.store.Current()
	return id, nil
}

func isCompany(f identity.Flags) bool    { return f.Company }
func isTrainee(f identity.Flags) bool    { return f.Trainee }
func isInstructor(f identity.Flags) bool { return f.Instructor }

// classify maps any command error to a printable CLIError.
func classify(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	var formErr *formError
	if errors.As(err, &formErr) {
		return &output.CLIError{Summary: "Datos inválidos", Detail: formErr.Error(), ExitCode: output.ExitUsageError, Err: err}
	}
	var validationErr *api.ValidationError
	if errors.As(err, &validationErr) {
		return &output.CLIError{Summary: "Datos inválidos", Detail: validationErr.Error(), ExitCode: output.ExitUsageError, Err: err}
	}
	switch auth.KindOf(err) {
	case auth.KindNetworkUnreachable:
		return &output.CLIError{Summary: err.Error(), Suggestion: "verifique --api o API_BASE_URL", ExitCode: output.ExitNetwork, Err: err}
	case auth.KindRejected, auth.KindMalformed:
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitAuthError, Err: err}
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		code := output.ExitGeneral
		switch {
		case apiErr.Status == 0 && apiErr.Message == auth.MsgNetworkUnreachable:
			code = output.ExitNetwork
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			code = output.ExitAuthError
		}
		return &output.CLIError{Summary: apiErr.Message, ExitCode: code, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &output.CLIError{Summary: "Operación cancelada", ExitCode: output.ExitGeneral, Err: err}
	}
	if errors.Is(err, session.ErrNotHydrated) {
		return &output.CLIError{Summary: "La sesión aún no está lista", ExitCode: output.ExitGeneral, Err: err}
	}
	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral, Err: err}
}
