package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"photonix/photo-portal/pkg/storage"
	"photonix/photo-portal/pkg/workflows"
)

// Prober checks whether the chosen storage already holds photos
type Prober interface {
	ContainsPhotos(ctx context.Context, backend StorageBackend, basePath string, s3 S3Settings) (bool, error)
}

// Finisher consumes the complete set of answers after the last step
type Finisher interface {
	Finish(ctx context.Context, state *State) error
}

// Result is the outcome of showing or submitting a step
type Result struct {
	Step     Step
	Form     any
	Visible  map[string]bool
	Guidance Guidance
	Errors   FieldErrors

	// Next is set after a successful submit of any step but the last
	Next StepID
	// Done is set after a successful submit of the last step
	Done bool
}

// Message returns the guidance text, if the step has one
func (r *Result) Message() string {
	return r.Guidance.Message()
}

// Wizard drives the onboarding sequence over a caller-owned State
type Wizard struct {
	machine    *workflows.StateMachine
	validate   *validator.Validate
	prober     Prober
	finisher   Finisher
	bcryptCost int
	logger     *zap.Logger
}

// Option customises a Wizard
type Option func(*Wizard)

// WithBcryptCost sets the cost used to hash the admin password
func WithBcryptCost(cost int) Option {
	return func(w *Wizard) { w.bcryptCost = cost }
}

// NewWizard creates a wizard over the fixed step table
func NewWizard(prober Prober, finisher Finisher, logger *zap.Logger, opts ...Option) *Wizard {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, string(s.ID))
	}
	w := &Wizard{
		machine:    workflows.NewLinear(ids...),
		validate:   newValidator(),
		prober:     prober,
		finisher:   finisher,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Current returns the step the session should resume on
func (w *Wizard) Current(state *State) StepID {
	if state.Current != "" && w.machine.Has(string(state.Current)) {
		return state.Current
	}
	return StepID(w.machine.Initial())
}

// CanVisit reports whether the step may be shown for this state
func (w *Wizard) CanVisit(state *State, id StepID) bool {
	if !w.machine.Has(string(id)) {
		return false
	}
	return string(id) == w.machine.Initial() || state.HasReached(id)
}

// View prepares a step for display from the committed answers
func (w *Wizard) View(state *State, id StepID) (*Result, error) {
	step, err := w.lookup(state, id)
	if err != nil {
		return nil, err
	}
	form := step.newForm()
	form.fill(state)
	state.Current = id
	return w.result(step, form, state), nil
}

// Fields recomputes conditional field visibility from an in-progress form
// without committing anything to the state.
func (w *Wizard) Fields(state *State, id StepID, values url.Values) (*Result, error) {
	step, err := w.lookup(state, id)
	if err != nil {
		return nil, err
	}
	form := step.newForm()
	if err := binding.MapFormWithTag(form, values, "form"); err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}
	form.normalize()
	return w.result(step, form, state), nil
}

// Submit validates the step's form. On success the answers are merged into
// state and the result names the next step; on failure state is untouched
// and the result carries field errors.
func (w *Wizard) Submit(ctx context.Context, state *State, id StepID, values url.Values) (*Result, error) {
	step, err := w.lookup(state, id)
	if err != nil {
		return nil, err
	}

	form := step.newForm()
	if err := binding.MapFormWithTag(form, values, "form"); err != nil {
		res := w.result(step, form, state)
		res.Errors = FieldErrors{FormErrorKey: "The form contains invalid values."}
		return res, nil
	}
	form.normalize()

	res := w.result(step, form, state)
	if errs := w.check(form); len(errs) > 0 {
		res.Errors = errs
		return res, nil
	}

	patch := form.patch()
	switch f := form.(type) {
	case *AdminUserForm:
		hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), w.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		patch.PasswordHash = ptr(string(hash))
	case *StorageForm:
		s3 := S3Settings{}
		if patch.S3 != nil {
			s3 = *patch.S3
		}
		contains, err := w.prober.ContainsPhotos(ctx, *patch.StorageBackend, f.BasePath, s3)
		if err != nil {
			w.logger.Warn("Storage probe failed",
				zap.String("backend", f.StorageBackend),
				zap.Error(err))
			res.Errors = probeErrors(*patch.StorageBackend, err)
			return res, nil
		}
		patch.StorageContainsFiles = &contains
	}

	state.Apply(patch)

	if step.IsLast() {
		if err := w.finisher.Finish(ctx, state); err != nil {
			w.logger.Error("Failed to finish onboarding", zap.Error(err))
			res.Errors = FieldErrors{FormErrorKey: "We could not create your library. Please try again."}
			return res, nil
		}
		w.logger.Info("Onboarding completed",
			zap.String("username", state.Username),
			zap.String("library", state.LibraryName))
		res.Done = true
		return res, nil
	}

	if !w.machine.CanTransition(string(step.ID), string(step.NextStep)) {
		return nil, fmt.Errorf("transition %s -> %s not allowed", step.ID, step.NextStep)
	}
	state.reach(step.NextStep)
	res.Next = step.NextStep
	return res, nil
}

// Back returns the step before id. Committed answers are kept.
func (w *Wizard) Back(state *State, id StepID) (StepID, error) {
	step, err := w.lookup(state, id)
	if err != nil {
		return "", err
	}
	if step.IsFirst() {
		return step.ID, nil
	}
	if !w.machine.CanTransition(string(step.ID), string(step.PreviousStep)) {
		return "", fmt.Errorf("transition %s -> %s not allowed", step.ID, step.PreviousStep)
	}
	state.Current = step.PreviousStep
	return step.PreviousStep, nil
}

func (w *Wizard) lookup(state *State, id StepID) (Step, error) {
	step, err := LookupStep(id)
	if err != nil {
		return Step{}, err
	}
	if !w.CanVisit(state, id) {
		return Step{}, ErrStepNotReached
	}
	return step, nil
}

func (w *Wizard) result(step Step, form stepForm, state *State) *Result {
	res := &Result{
		Step:    step,
		Form:    form,
		Visible: form.visible(),
	}
	if step.ID == StepPhotoImporting {
		if g, err := ImportGuidance(state.StorageBackend, state.StorageContainsFiles); err == nil {
			res.Guidance = g
		}
	}
	return res
}

func (w *Wizard) check(form stepForm) FieldErrors {
	err := w.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{FormErrorKey: err.Error()}
	}
	errs := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, ok := errs[fe.Field()]; !ok {
			errs[fe.Field()] = fieldMessage(fe)
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "This field is required."
	case "eqfield":
		return "Passwords do not match."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "oneof":
		return "Please choose one of the options."
	default:
		return "This value is not valid."
	}
}

func probeErrors(backend StorageBackend, err error) FieldErrors {
	switch backend {
	case StorageLocal:
		if errors.Is(err, storage.ErrNotFound) {
			return FieldErrors{"basePath": "This path does not exist on the server."}
		}
		return FieldErrors{"basePath": "We could not read this path."}
	case StorageS3:
		return FieldErrors{"s3Server": "We could not connect to your S3-compatible storage."}
	default:
		return FieldErrors{"storageBackend": "Please choose one of the options."}
	}
}
