package browse

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"photonix/photo-portal/internal/account"
	"photonix/photo-portal/internal/library"
	"photonix/photo-portal/pkg/geospatial"
)

// Photos is the part of the library service the browse page reads
type Photos interface {
	Library(ctx context.Context, userID, id string) (*library.Library, error)
	Sections(ctx context.Context, filter library.PhotoFilter) ([]library.Section, error)
	Tags(ctx context.Context, libraryID string) ([]library.Tag, error)
}

// Menus builds the user menu shown in the header
type Menus interface {
	Menu(ctx context.Context, userID string) (account.Menu, error)
}

// ImportStatus reports running imports
type ImportStatus interface {
	Importing(libraryID string) bool
}

type Service struct {
	photos  Photos
	menus   Menus
	imports ImportStatus
	logger  *zap.Logger
}

func NewService(photos Photos, menus Menus, imports ImportStatus, logger *zap.Logger) *Service {
	return &Service{
		photos:  photos,
		menus:   menus,
		imports: imports,
		logger:  logger,
	}
}

// Page loads the browse page for a search. Failures are recorded in
// Page.Err rather than returned.
func (s *Service) Page(ctx context.Context, userID string, search Search) *Page {
	page := &Page{
		Mode:            ParseMode(search.Mode),
		Expanded:        search.Expanded,
		Search:          search,
		SelectedFilters: search.Filters,
	}

	menu, err := s.menus.Menu(ctx, userID)
	if err != nil {
		s.fail(page, userID, err)
		return page
	}
	page.Menu = menu

	lib, err := s.photos.Library(ctx, userID, search.Library)
	if errors.Is(err, library.ErrNotFound) {
		return page
	}
	if err != nil {
		s.fail(page, userID, err)
		return page
	}
	page.LibraryID = lib.ID

	tags, err := s.photos.Tags(ctx, lib.ID)
	if err != nil {
		s.fail(page, userID, err)
		return page
	}
	for _, t := range tags {
		page.Filters = append(page.Filters, Filter{Name: t.Name, Type: t.Type, Selected: search.Selected(t.Name)})
	}

	sections, err := s.photos.Sections(ctx, library.PhotoFilter{
		LibraryID: lib.ID,
		Text:      search.Text,
		Tags:      search.Filters,
	})
	if err != nil {
		s.fail(page, userID, err)
		return page
	}
	page.PhotoSections = convertSections(sections)
	page.Loading = len(sections) == 0 && s.imports.Importing(lib.ID)
	return page
}

func (s *Service) fail(page *Page, userID string, err error) {
	s.logger.Error("Failed to load photos", zap.String("user_id", userID), zap.Error(err))
	page.Err = err
}

func convertSections(sections []library.Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, sec := range sections {
		section := Section{Title: sec.Title}
		for _, seg := range sec.Segments {
			segment := Segment{Title: seg.Title}
			for _, p := range seg.Photos {
				segment.Photos = append(segment.Photos, convertPhoto(p))
			}
			section.Segments = append(section.Segments, segment)
		}
		out = append(out, section)
	}
	return out
}

func convertPhoto(p library.Photo) Photo {
	photo := Photo{
		ID:        p.ID,
		Thumbnail: PhotoURL(p.ID),
		TakenAt:   p.TakenAt,
	}
	if p.HasLocation() {
		photo.Location = &LatLng{Lat: *p.Latitude, Lng: *p.Longitude}
	}
	return photo
}

// PhotoURL is where the photo file is served
func PhotoURL(id string) string {
	return "/photos/" + id + "/file"
}

// MapView is the data behind the map content
type MapView struct {
	Photos   []Photo
	GeoJSON  string
	Viewport geospatial.Viewport
}

// NewMapView places the located photos on a map
func NewMapView(photos []Photo) (*MapView, error) {
	var markers []geospatial.Marker
	for _, p := range photos {
		if p.Location == nil {
			continue
		}
		markers = append(markers, geospatial.Marker{
			ID:        p.ID,
			Latitude:  p.Location.Lat,
			Longitude: p.Location.Lng,
			Thumbnail: p.Thumbnail,
		})
	}
	data, err := geospatial.MarshalFeatureCollection(markers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode map features: %w", err)
	}
	return &MapView{
		Photos:   photos,
		GeoJSON:  data,
		Viewport: geospatial.CalculateViewport(markers),
	}, nil
}
