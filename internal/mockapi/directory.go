package mockapi

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sstasesores/trainingsoft/internal/api"
)

// Directory errors.
var (
	ErrInvalidCredentials = errors.New("mockapi: invalid credentials")
	ErrNotFound           = errors.New("mockapi: not found")
)

// Company is a client company account.
type Company struct {
	ID           string
	IDEmp        string
	RUC          string
	Name         string
	Email        string
	passwordHash []byte
}

// Instructor is a trainer account.
type Instructor struct {
	ID           int
	Username     string
	FullName     string
	Email        string
	passwordHash []byte
}

// Directory is the in-memory backing store of the mock API.
type Directory struct {
	mu          sync.RWMutex
	cost        int
	companies   map[string]*Company // by RUC
	instructors map[string]*Instructor
	trainees    map[string]api.Trainee // by document
	companyOf   map[string]string      // trainee document -> idemp
	trainings   map[string][]api.Training
	requests    map[string][]api.TrainingRequest
	pending     map[int][]map[string]any
	reports     []map[string]any
	nextRequest int
	now         func() time.Time
}

// NewDirectory returns a directory seeded with demo data. cost is the bcrypt
// cost; tests pass bcrypt.MinCost.
func NewDirectory(cost int) (*Directory, error) {
	d := &Directory{
		cost:        cost,
		companies:   map[string]*Company{},
		instructors: map[string]*Instructor{},
		trainees:    map[string]api.Trainee{},
		companyOf:   map[string]string{},
		trainings:   map[string][]api.Training{},
		requests:    map[string][]api.TrainingRequest{},
		pending:     map[int][]map[string]any{},
		nextRequest: 1,
		now:         time.Now,
	}
	if err := d.seed(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) hash(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("mockapi: hash password: %w", err)
	}
	return h, nil
}

// AddCompany registers a company account.
func (d *Directory) AddCompany(c Company, password string) error {
	h, err := d.hash(password)
	if err != nil {
		return err
	}
	c.passwordHash = h
	d.mu.Lock()
	defer d.mu.Unlock()
	d.companies[c.RUC] = &c
	return nil
}

// AddInstructor registers an instructor account.
func (d *Directory) AddInstructor(in Instructor, password string) error {
	h, err := d.hash(password)
	if err != nil {
		return err
	}
	in.passwordHash = h
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instructors[in.Username] = &in
	return nil
}

// AddTrainee registers a trainee of company idemp with its trainings.
func (d *Directory) AddTrainee(idemp string, t api.Trainee, trainings ...api.Training) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trainees[t.Document] = t
	d.companyOf[t.Document] = idemp
	for i := range trainings {
		trainings[i].TraineeID = t.ID
	}
	d.trainings[t.Document] = append(d.trainings[t.Document], trainings...)
}

// AuthenticateCompany checks a RUC and password.
func (d *Directory) AuthenticateCompany(ruc, password string) (Company, error) {
	d.mu.RLock()
	var c Company
	stored, ok := d.companies[ruc]
	if ok {
		c = *stored
	}
	d.mu.RUnlock()
	if !ok {
		return Company{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)); err != nil {
		return Company{}, ErrInvalidCredentials
	}
	return c, nil
}

// AuthenticateInstructor checks a username and password.
func (d *Directory) AuthenticateInstructor(username, password string) (Instructor, error) {
	d.mu.RLock()
	in, ok := d.instructors[username]
	d.mu.RUnlock()
	if !ok {
		return Instructor{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(in.passwordHash, []byte(password)); err != nil {
		return Instructor{}, ErrInvalidCredentials
	}
	return *in, nil
}

// Trainee looks a trainee up by document number.
func (d *Directory) Trainee(document string) (api.Trainee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.trainees[document]
	if !ok {
		return api.Trainee{}, ErrNotFound
	}
	return t, nil
}

// ChangeCompanyPassword replaces the password of the company identified by
// idemp and ruc after checking the current one.
func (d *Directory) ChangeCompanyPassword(idemp, ruc, current, next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.companies[ruc]
	if !ok || c.IDEmp != idemp {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	h, err := d.hash(next)
	if err != nil {
		return err
	}
	c.passwordHash = h
	return nil
}

// Trainings returns the trainings of a document number.
func (d *Directory) Trainings(document string) ([]api.Training, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.trainees[document]; !ok {
		return nil, ErrNotFound
	}
	return append([]api.Training{}, d.trainings[document]...), nil
}

// Search returns trainings of company idemp matching filter; filters match
// case-insensitive substrings.
func (d *Directory) Search(idemp string, filter api.TraineeFilter) []api.TrainingDetail {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []api.TrainingDetail{}
	for doc, t := range d.trainees {
		if d.companyOf[doc] != idemp {
			continue
		}
		if !contains(t.FullName(), filter.Name) || !contains(t.Document, filter.Document) {
			continue
		}
		for _, tr := range d.trainings[doc] {
			if !contains(tr.Course, filter.Course) {
				continue
			}
			out = append(out, api.TrainingDetail{Training: tr, Trainee: t})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trainee.Document != out[j].Trainee.Document {
			return out[i].Trainee.Document < out[j].Trainee.Document
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func contains(haystack, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Requests lists the training requests of company idemp.
func (d *Directory) Requests(idemp string) []api.TrainingRequest {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]api.TrainingRequest{}, d.requests[idemp]...)
}

// AddRequest stores req as pending and returns the stored copy.
func (d *Directory) AddRequest(req api.TrainingRequest) api.TrainingRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	req.ID = "SOL-" + strconv.Itoa(d.nextRequest)
	d.nextRequest++
	req.Status = "pendiente"
	req.CreatedAt = d.now().UTC().Format(time.RFC3339)
	d.requests[req.CompanyID] = append(d.requests[req.CompanyID], req)
	return req
}

// PendingCourses returns the raw pending-course rows of an instructor.
func (d *Directory) PendingCourses(instructorID int) []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]map[string]any{}, d.pending[instructorID]...)
}

// Reports returns the raw report rows.
func (d *Directory) Reports() []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]map[string]any{}, d.reports...)
}

// Stats computes the instructor counters.
func (d *Directory) Stats(instructorID int) map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	closed := 0
	for _, r := range d.reports {
		if r["instructor_id"] == instructorID {
			closed++
		}
	}
	trained := 0
	for _, list := range d.trainings {
		for _, tr := range list {
			if tr.Status == "completado" {
				trained++
			}
		}
	}
	return map[string]int{
		"cursosPendientesCount": len(d.pending[instructorID]),
		"cursosCerradosCount":   closed,
		"capacitadosCount":      trained,
	}
}
