package onboarding

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStep is returned for step identifiers outside the sequence
	ErrUnknownStep = errors.New("unknown onboarding step")
	// ErrUnknownBackend is returned for storage backend codes other than Lo and S3
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrStepNotReached is returned when a step is requested before the
	// steps leading to it were submitted
	ErrStepNotReached = errors.New("onboarding step not reached yet")
)

// StorageBackend is where the photo library lives
type StorageBackend string

const (
	StorageUnset StorageBackend = ""
	StorageLocal StorageBackend = "Lo"
	StorageS3    StorageBackend = "S3"
)

// ParseStorageBackend converts a form code into a backend
func ParseStorageBackend(code string) (StorageBackend, error) {
	switch StorageBackend(code) {
	case StorageLocal:
		return StorageLocal, nil
	case StorageS3:
		return StorageS3, nil
	default:
		return StorageUnset, fmt.Errorf("%w: %q", ErrUnknownBackend, code)
	}
}

// Label is the human readable backend name
func (b StorageBackend) Label() string {
	switch b {
	case StorageLocal:
		return "Local"
	case StorageS3:
		return "S3-compatible"
	default:
		return ""
	}
}

// S3Settings holds the connection answers for an S3-compatible backend
type S3Settings struct {
	Server    string
	Path      string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Classifiers selects which analysers run over imported photos
type Classifiers struct {
	Color    bool
	Location bool
	Object   bool
	Style    bool
	Face     bool
}

// State is the accumulated set of onboarding answers for one session. It
// only ever grows: Apply overwrites supplied fields and keeps the rest.
type State struct {
	Username              string
	PasswordHash          string
	StorageBackend        StorageBackend
	BasePath              string
	S3                    S3Settings
	StorageContainsFiles  bool
	WatchForChanges       bool
	ImportFromAnotherPath bool
	ImportPath            string
	DeleteAfterImport     bool
	Classifiers           Classifiers
	LibraryName           string

	// Current is the step the user is looking at
	Current StepID
	// Reached lists every step the user has been allowed onto
	Reached []StepID
}

// NewState returns the empty state a wizard starts from
func NewState() *State {
	return &State{
		Current: StepAdminUser,
		Reached: []StepID{StepAdminUser},
		Classifiers: Classifiers{
			Color:    true,
			Location: true,
			Object:   true,
			Style:    true,
			Face:     true,
		},
	}
}

// Patch is a partial set of answers submitted by one step. Nil fields were
// not part of the submission.
type Patch struct {
	Username              *string
	PasswordHash          *string
	StorageBackend        *StorageBackend
	BasePath              *string
	S3                    *S3Settings
	StorageContainsFiles  *bool
	WatchForChanges       *bool
	ImportFromAnotherPath *bool
	ImportPath            *string
	DeleteAfterImport     *bool
	Classifiers           *Classifiers
	LibraryName           *string
}

// Apply merges the patch into the state
func (s *State) Apply(p Patch) {
	if p.Username != nil {
		s.Username = *p.Username
	}
	if p.PasswordHash != nil {
		s.PasswordHash = *p.PasswordHash
	}
	if p.StorageBackend != nil {
		s.StorageBackend = *p.StorageBackend
	}
	if p.BasePath != nil {
		s.BasePath = *p.BasePath
	}
	if p.S3 != nil {
		s.S3 = *p.S3
	}
	if p.StorageContainsFiles != nil {
		s.StorageContainsFiles = *p.StorageContainsFiles
	}
	if p.WatchForChanges != nil {
		s.WatchForChanges = *p.WatchForChanges
	}
	if p.ImportFromAnotherPath != nil {
		s.ImportFromAnotherPath = *p.ImportFromAnotherPath
	}
	if p.ImportPath != nil {
		s.ImportPath = *p.ImportPath
	}
	if p.DeleteAfterImport != nil {
		s.DeleteAfterImport = *p.DeleteAfterImport
	}
	if p.Classifiers != nil {
		s.Classifiers = *p.Classifiers
	}
	if p.LibraryName != nil {
		s.LibraryName = *p.LibraryName
	}
}

// HasReached reports whether the user has been allowed onto the step
func (s *State) HasReached(id StepID) bool {
	for _, r := range s.Reached {
		if r == id {
			return true
		}
	}
	return false
}

func (s *State) reach(id StepID) {
	if !s.HasReached(id) {
		s.Reached = append(s.Reached, id)
	}
	s.Current = id
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	c := *s
	c.Reached = append([]StepID(nil), s.Reached...)
	return &c
}

// FieldErrors maps form field names to a message shown next to the field
type FieldErrors map[string]string

// FormErrorKey holds errors that do not belong to a single field
const FormErrorKey = "_form"

func ptr[T any](v T) *T {
	return &v
}
