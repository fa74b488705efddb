package library

import (
	"errors"
	"fmt"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Metadata is what the importer reads from a photo's EXIF block
type Metadata struct {
	TakenAt     time.Time
	Latitude    *float64
	Longitude   *float64
	CameraMake  string
	CameraModel string
}

// ReadMetadata extracts the capture time, GPS position and camera from
// image bytes. Files without EXIF return exif.ErrNoExif.
func ReadMetadata(data []byte) (Metadata, error) {
	var md Metadata

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return md, exif.ErrNoExif
		}
		return md, fmt.Errorf("failed to find exif: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return md, fmt.Errorf("failed to parse exif: %w", err)
	}

	var (
		original, digitized, modified string
		lat, lon                      []exifcommon.Rational
		latRef, lonRef                string
	)
	for _, entry := range entries {
		switch entry.TagName {
		case "DateTimeOriginal":
			original = stringValue(entry.Value)
		case "DateTimeDigitized":
			digitized = stringValue(entry.Value)
		case "DateTime":
			modified = stringValue(entry.Value)
		case "Make":
			md.CameraMake = stringValue(entry.Value)
		case "Model":
			md.CameraModel = stringValue(entry.Value)
		case "GPSLatitude":
			lat, _ = entry.Value.([]exifcommon.Rational)
		case "GPSLongitude":
			lon, _ = entry.Value.([]exifcommon.Rational)
		case "GPSLatitudeRef":
			latRef = stringValue(entry.Value)
		case "GPSLongitudeRef":
			lonRef = stringValue(entry.Value)
		}
	}

	for _, v := range []string{original, digitized, modified} {
		if t, ok := parseExifTime(v); ok {
			md.TakenAt = t
			break
		}
	}

	if la, ok := gpsDegrees(lat, latRef); ok {
		if lo, ok := gpsDegrees(lon, lonRef); ok {
			md.Latitude = &la
			md.Longitude = &lo
		}
	}
	return md, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func parseExifTime(v string) (time.Time, bool) {
	if v == "" || strings.HasPrefix(v, "0000") {
		return time.Time{}, false
	}
	t, err := time.Parse(exifTimeLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// gpsDegrees converts degrees, minutes and seconds into signed decimal
// degrees. South and West references are negative.
func gpsDegrees(dms []exifcommon.Rational, ref string) (float64, bool) {
	if len(dms) != 3 {
		return 0, false
	}
	var parts [3]float64
	for i, r := range dms {
		if r.Denominator == 0 {
			return 0, false
		}
		parts[i] = float64(r.Numerator) / float64(r.Denominator)
	}
	deg := parts[0] + parts[1]/60 + parts[2]/3600
	switch strings.ToUpper(ref) {
	case "S", "W":
		deg = -deg
	}
	return deg, true
}
