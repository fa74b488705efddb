package browse

import (
	"net/url"
	"strings"
	"time"

	"photonix/photo-portal/internal/account"
)

// Mode is how the photo list is laid out
type Mode int

const (
	ModeTimeline Mode = iota
	ModeMap
)

// ParseMode reads the ?mode= query value. Anything other than "map" is the
// timeline.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "map") {
		return ModeMap
	}
	return ModeTimeline
}

func (m Mode) String() string {
	switch m {
	case ModeMap:
		return "MAP"
	default:
		return "TIMELINE"
	}
}

// Query returns the value used in ?mode=
func (m Mode) Query() string {
	return strings.ToLower(m.String())
}

type LatLng struct {
	Lat float64
	Lng float64
}

type Photo struct {
	ID        string
	Thumbnail string
	Location  *LatLng
	TakenAt   time.Time
}

type Segment struct {
	Title  string
	Photos []Photo
}

type Section struct {
	Title    string
	Segments []Segment
}

// Search is the current query of the browse page. It round-trips through
// the URL so every view is linkable.
type Search struct {
	Library  string   `form:"library"`
	Mode     string   `form:"mode"`
	Text     string   `form:"q"`
	Filters  []string `form:"filter"`
	Expanded bool     `form:"expanded"`
}

// Values encodes the search as query parameters
func (s Search) Values() url.Values {
	v := url.Values{}
	if s.Library != "" {
		v.Set("library", s.Library)
	}
	if mode := ParseMode(s.Mode); mode != ModeTimeline {
		v.Set("mode", mode.Query())
	}
	if s.Text != "" {
		v.Set("q", s.Text)
	}
	for _, f := range s.Filters {
		v.Add("filter", f)
	}
	if s.Expanded {
		v.Set("expanded", "true")
	}
	return v
}

// URL is the browse page address for this search
func (s Search) URL() string {
	if q := s.Values().Encode(); q != "" {
		return "/?" + q
	}
	return "/"
}

// WithMode returns a copy switched to mode
func (s Search) WithMode(mode Mode) Search {
	s.Filters = append([]string(nil), s.Filters...)
	s.Mode = mode.Query()
	return s
}

// Toggle adds the filter if absent and removes it otherwise
func (s Search) Toggle(filter string) Search {
	filters := make([]string, 0, len(s.Filters)+1)
	found := false
	for _, f := range s.Filters {
		if f == filter {
			found = true
			continue
		}
		filters = append(filters, f)
	}
	if !found && filter != "" {
		filters = append(filters, filter)
	}
	s.Filters = filters
	return s
}

// Selected reports whether filter is active
func (s Search) Selected(filter string) bool {
	for _, f := range s.Filters {
		if f == filter {
			return true
		}
	}
	return false
}

// Content is what the main area of the browse page shows
type Content int

const (
	ContentTimeline Content = iota
	ContentMap
	ContentLoading
	ContentError
	ContentEmpty
)

func (c Content) String() string {
	switch c {
	case ContentMap:
		return "map"
	case ContentLoading:
		return "loading"
	case ContentError:
		return "error"
	case ContentEmpty:
		return "empty"
	default:
		return "timeline"
	}
}

// Page is everything the browse template renders
type Page struct {
	Menu            account.Menu
	LibraryID       string
	Filters         []Filter
	SelectedFilters []string
	Mode            Mode
	Loading         bool
	Err             error
	PhotoSections   []Section
	Expanded        bool
	Search          Search
}

// Filter is a tag the user can filter by
type Filter struct {
	Name     string
	Type     string
	Selected bool
}

// SelectContent picks the main content. An error wins over loading, which
// wins over the chosen mode. A map without a first segment shows the empty
// state.
func SelectContent(p *Page) Content {
	switch {
	case p.Err != nil:
		return ContentError
	case p.Loading:
		return ContentLoading
	case p.Mode == ModeMap:
		if !hasFirstSegment(p.PhotoSections) {
			return ContentEmpty
		}
		return ContentMap
	default:
		return ContentTimeline
	}
}

// MapPhotos returns the photos of the first segment of the first section
func MapPhotos(p *Page) []Photo {
	if !hasFirstSegment(p.PhotoSections) {
		return nil
	}
	return p.PhotoSections[0].Segments[0].Photos
}

func hasFirstSegment(sections []Section) bool {
	return len(sections) > 0 && len(sections[0].Segments) > 0
}
