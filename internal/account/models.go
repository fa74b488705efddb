package account

import "photonix/photo-portal/internal/library"

// Profile is the logged in user as shown in the menu
type Profile struct {
	Username string
	Email    string
}

// Library is a library entry of the user menu
type Library struct {
	ID   string
	Name string
}

// EntryKind identifies what a menu entry points to
type EntryKind int

const (
	EntryProfile EntryKind = iota
	EntryLibrary
	EntrySettings
	EntryLogout
)

func (k EntryKind) String() string {
	switch k {
	case EntryProfile:
		return "profile"
	case EntryLibrary:
		return "library"
	case EntrySettings:
		return "settings"
	case EntryLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Entry is one rendered row of the user menu
type Entry struct {
	Kind  EntryKind
	Key   string
	Label string
	Href  string
}

// Menu is the view model of the user menu. A nil Profile renders no profile
// entry and nil Libraries render no library entries.
type Menu struct {
	Profile   *Profile
	Libraries []Library
}

func NewMenu(profile *Profile, libraries []Library) Menu {
	return Menu{Profile: profile, Libraries: libraries}
}

// Entries lists the menu rows in display order: the profile when known,
// each library once in the order supplied, then Settings and Logout.
func (m Menu) Entries() []Entry {
	entries := make([]Entry, 0, len(m.Libraries)+3)
	if m.Profile != nil {
		entries = append(entries, Entry{
			Kind:  EntryProfile,
			Key:   "profile",
			Label: m.Profile.Username,
			Href:  "/account",
		})
	}
	for _, lib := range m.Libraries {
		entries = append(entries, Entry{
			Kind:  EntryLibrary,
			Key:   lib.ID,
			Label: lib.Name,
			Href:  "/?library=" + lib.ID,
		})
	}
	return append(entries,
		Entry{Kind: EntrySettings, Key: "settings", Label: "Settings", Href: "/settings"},
		Entry{Kind: EntryLogout, Key: "logout", Label: "Logout", Href: "/logout"},
	)
}

// LibrarySettings is a library with the folders it reads from
type LibrarySettings struct {
	Library library.Library
	Paths   []library.Path
}
