package exif

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
)

const exifTimeLayout = "2006:01:02 15:04:05"

var ErrNoCaptureTime = errors.New("exif capture time not found")

// Reader extracts capture metadata from preview images.
type Reader struct{}

// CaptureTime returns DateTimeOriginal, falling back to the generic DateTime tag.
func (Reader) CaptureTime(ctx context.Context, path string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer file.Close()

	x, err := goexif.Decode(file)
	if err != nil {
		return time.Time{}, err
	}

	if tag, err := x.Get(goexif.DateTimeOriginal); err == nil {
		if str, err := tag.StringVal(); err == nil {
			if parsed, err := time.ParseInLocation(exifTimeLayout, str, time.Local); err == nil {
				return parsed, nil
			}
		}
	}

	if parsed, err := x.DateTime(); err == nil {
		return parsed, nil
	}

	return time.Time{}, ErrNoCaptureTime
}

// Camera returns "Make Model" when present.
func (Reader) Camera(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	x, err := goexif.Decode(file)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, field := range []goexif.FieldName{goexif.Make, goexif.Model} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if str, err := tag.StringVal(); err == nil && str != "" {
			parts = append(parts, str)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("exif camera not found")
	}
	return strings.Join(parts, " "), nil
}
