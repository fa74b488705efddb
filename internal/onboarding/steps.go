package onboarding

import "strings"

// StepID identifies one screen of the onboarding sequence
type StepID string

const (
	StepAdminUser       StepID = "step1"
	StepAdminCreated    StepID = "step2"
	StepStorage         StepID = "step3"
	StepPhotoImporting  StepID = "step4"
	StepPhotoAnalysis   StepID = "step5"
	StepCreatingLibrary StepID = "step6"
)

// Path is the URL the step is served on
func (id StepID) Path() string {
	return "/onboarding/" + string(id)
}

// Step is one node of the linear sequence. PreviousStep and NextStep are
// fixed in the table below; an empty value marks either end.
type Step struct {
	ID           StepID
	Title        string
	PreviousStep StepID
	NextStep     StepID

	newForm func() stepForm
}

// Template is the name of the view rendering the step
func (s Step) Template() string {
	return "onboarding_" + string(s.ID)
}

// IsFirst reports whether there is no step before this one
func (s Step) IsFirst() bool {
	return s.PreviousStep == ""
}

// IsLast reports whether submitting this step completes onboarding
func (s Step) IsLast() bool {
	return s.NextStep == ""
}

var steps = []Step{
	{
		ID:       StepAdminUser,
		Title:    "Create an admin user",
		NextStep: StepAdminCreated,
		newForm:  func() stepForm { return &AdminUserForm{} },
	},
	{
		ID:           StepAdminCreated,
		Title:        "Admin user created",
		PreviousStep: StepAdminUser,
		NextStep:     StepStorage,
		newForm:      func() stepForm { return &AdminCreatedForm{} },
	},
	{
		ID:           StepStorage,
		Title:        "Photo storage",
		PreviousStep: StepAdminCreated,
		NextStep:     StepPhotoImporting,
		newForm:      func() stepForm { return &StorageForm{} },
	},
	{
		ID:           StepPhotoImporting,
		Title:        "Photo importing",
		PreviousStep: StepStorage,
		NextStep:     StepPhotoAnalysis,
		newForm:      func() stepForm { return &PhotoImportingForm{} },
	},
	{
		ID:           StepPhotoAnalysis,
		Title:        "Photo analysis",
		PreviousStep: StepPhotoImporting,
		NextStep:     StepCreatingLibrary,
		newForm:      func() stepForm { return &PhotoAnalysisForm{} },
	},
	{
		ID:           StepCreatingLibrary,
		Title:        "Creating your library",
		PreviousStep: StepPhotoAnalysis,
		newForm:      func() stepForm { return &CreatingLibraryForm{} },
	},
}

// Steps returns the sequence in order
func Steps() []Step {
	return append([]Step(nil), steps...)
}

// LookupStep finds a step by identifier
func LookupStep(id StepID) (Step, error) {
	for _, s := range steps {
		if s.ID == id {
			return s, nil
		}
	}
	return Step{}, ErrUnknownStep
}

// stepForm is the in-progress form of a single step
type stepForm interface {
	// fill copies committed answers into the form for display
	fill(s *State)
	// normalize tidies raw input before validation
	normalize()
	// visible lists conditional fields shown for the current form values
	visible() map[string]bool
	// patch converts the validated form into the answers it commits
	patch() Patch
}

// AdminUserForm creates the first user
type AdminUserForm struct {
	Username        string `form:"username" binding:"required,max=150"`
	Password        string `form:"password" binding:"required,min=8"`
	PasswordConfirm string `form:"passwordConfirm" binding:"required,eqfield=Password"`
}

func (f *AdminUserForm) fill(s *State)            { f.Username = s.Username }
func (f *AdminUserForm) normalize()               { f.Username = strings.TrimSpace(f.Username) }
func (f *AdminUserForm) visible() map[string]bool { return map[string]bool{} }

// the password hash is added by the wizard
func (f *AdminUserForm) patch() Patch {
	return Patch{Username: ptr(f.Username)}
}

// AdminCreatedForm has no fields
type AdminCreatedForm struct{}

func (f *AdminCreatedForm) fill(*State)              {}
func (f *AdminCreatedForm) normalize()               {}
func (f *AdminCreatedForm) visible() map[string]bool { return map[string]bool{} }
func (f *AdminCreatedForm) patch() Patch             { return Patch{} }

// StorageForm chooses where the library lives
type StorageForm struct {
	StorageBackend string `form:"storageBackend" binding:"required,oneof=Lo S3"`
	BasePath       string `form:"basePath" binding:"required_if=StorageBackend Lo"`
	S3Server       string `form:"s3Server" binding:"required_if=StorageBackend S3"`
	S3Path         string `form:"s3Path"`
	S3Bucket       string `form:"s3Bucket" binding:"required_if=StorageBackend S3"`
	S3AccessKey    string `form:"s3AccessKey" binding:"required_if=StorageBackend S3"`
	S3SecretKey    string `form:"s3SecretKey" binding:"required_if=StorageBackend S3"`
	S3UseSSL       bool   `form:"s3UseSSL"`
}

func (f *StorageForm) fill(s *State) {
	f.StorageBackend = string(s.StorageBackend)
	f.BasePath = s.BasePath
	f.S3Server = s.S3.Server
	f.S3Path = s.S3.Path
	f.S3Bucket = s.S3.Bucket
	f.S3AccessKey = s.S3.AccessKey
	f.S3SecretKey = s.S3.SecretKey
	f.S3UseSSL = s.S3.UseSSL
}

func (f *StorageForm) normalize() {
	f.BasePath = strings.TrimSpace(f.BasePath)
	f.S3Server = strings.TrimSpace(f.S3Server)
	f.S3Path = strings.TrimSpace(f.S3Path)
	f.S3Bucket = strings.TrimSpace(f.S3Bucket)
	f.S3AccessKey = strings.TrimSpace(f.S3AccessKey)
}

func (f *StorageForm) visible() map[string]bool {
	local := f.StorageBackend == string(StorageLocal)
	s3 := f.StorageBackend == string(StorageS3)
	return map[string]bool{
		"basePath":    local,
		"s3Server":    s3,
		"s3Path":      s3,
		"s3Bucket":    s3,
		"s3AccessKey": s3,
		"s3SecretKey": s3,
		"s3UseSSL":    s3,
	}
}

// storageContainsFiles is added by the wizard after probing the backend
func (f *StorageForm) patch() Patch {
	backend := StorageBackend(f.StorageBackend)
	p := Patch{StorageBackend: &backend}
	switch backend {
	case StorageLocal:
		p.BasePath = ptr(f.BasePath)
	case StorageS3:
		p.S3 = &S3Settings{
			Server:    f.S3Server,
			Path:      f.S3Path,
			Bucket:    f.S3Bucket,
			AccessKey: f.S3AccessKey,
			SecretKey: f.S3SecretKey,
			UseSSL:    f.S3UseSSL,
		}
	}
	return p
}

// PhotoImportingForm decides how new photos arrive
type PhotoImportingForm struct {
	WatchForChanges       bool   `form:"watchForChanges"`
	ImportFromAnotherPath bool   `form:"importFromAnotherPath"`
	ImportPath            string `form:"importPath" binding:"required_if=ImportFromAnotherPath true"`
	DeleteAfterImport     bool   `form:"deleteAfterImport"`
}

func (f *PhotoImportingForm) fill(s *State) {
	f.WatchForChanges = s.WatchForChanges
	f.ImportFromAnotherPath = s.ImportFromAnotherPath
	f.ImportPath = s.ImportPath
	f.DeleteAfterImport = s.DeleteAfterImport
}

func (f *PhotoImportingForm) normalize() { f.ImportPath = strings.TrimSpace(f.ImportPath) }

func (f *PhotoImportingForm) visible() map[string]bool {
	return map[string]bool{
		"importPath":        f.ImportFromAnotherPath,
		"deleteAfterImport": f.ImportFromAnotherPath,
	}
}

// hidden fields are left out so earlier answers to them survive
func (f *PhotoImportingForm) patch() Patch {
	p := Patch{
		WatchForChanges:       ptr(f.WatchForChanges),
		ImportFromAnotherPath: ptr(f.ImportFromAnotherPath),
	}
	if f.ImportFromAnotherPath {
		p.ImportPath = ptr(f.ImportPath)
		p.DeleteAfterImport = ptr(f.DeleteAfterImport)
	}
	return p
}

// PhotoAnalysisForm toggles the classifiers run on imported photos
type PhotoAnalysisForm struct {
	Color    bool `form:"classificationColor"`
	Location bool `form:"classificationLocation"`
	Object   bool `form:"classificationObject"`
	Style    bool `form:"classificationStyle"`
	Face     bool `form:"classificationFace"`
}

func (f *PhotoAnalysisForm) fill(s *State) {
	f.Color = s.Classifiers.Color
	f.Location = s.Classifiers.Location
	f.Object = s.Classifiers.Object
	f.Style = s.Classifiers.Style
	f.Face = s.Classifiers.Face
}

func (f *PhotoAnalysisForm) normalize()               {}
func (f *PhotoAnalysisForm) visible() map[string]bool { return map[string]bool{} }

func (f *PhotoAnalysisForm) patch() Patch {
	return Patch{Classifiers: &Classifiers{
		Color:    f.Color,
		Location: f.Location,
		Object:   f.Object,
		Style:    f.Style,
		Face:     f.Face,
	}}
}

// CreatingLibraryForm names the library created at the end
type CreatingLibraryForm struct {
	LibraryName string `form:"libraryName" binding:"required,max=100"`
}

func (f *CreatingLibraryForm) fill(s *State) { f.LibraryName = s.LibraryName }
func (f *CreatingLibraryForm) normalize()    { f.LibraryName = strings.TrimSpace(f.LibraryName) }
func (f *CreatingLibraryForm) visible() map[string]bool {
	return map[string]bool{}
}

func (f *CreatingLibraryForm) patch() Patch {
	return Patch{LibraryName: ptr(f.LibraryName)}
}
