package onboarding

import "fmt"

// Guidance is the message shown at the top of the photo importing step
type Guidance int

const (
	GuidanceLocalWithPhotos Guidance = iota + 1
	GuidanceLocalEmpty
	GuidanceS3WithPhotos
	GuidanceS3Empty
)

var guidanceMessages = map[Guidance]string{
	GuidanceLocalWithPhotos: "We see there are photos already in the location you selected as your base path. " +
		"Should we continuously monitor this folder to detect you adding new files here in future? " +
		"If not, we can set up another path to import new photos from.",
	GuidanceLocalEmpty: "We don't currently see any photos in the base path you selected. " +
		"Should we continuously monitor this folder to detect you adding new files here in future? " +
		"If not, we can set up another path to import new photos from.",
	GuidanceS3WithPhotos: "We managed to connect to your S3-compatible storage and can see there are photos " +
		"already in the location you selected as your base path. " +
		"Should we continuously monitor this folder to detect you adding new files here in future? " +
		"If not, we can set up another path to import new photos from.",
	GuidanceS3Empty: "We managed to connect to your S3-compatible storage but can't see any existing photos there yet. " +
		"Should we continuously monitor this folder to detect you adding new files here in future? " +
		"If not, we can set up another path to import new photos from.",
}

// Message returns the text for the guidance variant
func (g Guidance) Message() string {
	return guidanceMessages[g]
}

// ImportGuidance picks exactly one message from the storage backend and
// whether the backend already holds photos.
func ImportGuidance(backend StorageBackend, containsFiles bool) (Guidance, error) {
	switch backend {
	case StorageLocal:
		if containsFiles {
			return GuidanceLocalWithPhotos, nil
		}
		return GuidanceLocalEmpty, nil
	case StorageS3:
		if containsFiles {
			return GuidanceS3WithPhotos, nil
		}
		return GuidanceS3Empty, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, string(backend))
	}
}

// AllGuidance lists every variant in display order
func AllGuidance() []Guidance {
	return []Guidance{GuidanceLocalWithPhotos, GuidanceLocalEmpty, GuidanceS3WithPhotos, GuidanceS3Empty}
}
