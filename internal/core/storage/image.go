package storage

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageDetail describes one captured image file
type ImageDetail struct {
	Path        string
	Size        int64
	ModTime     time.Time
	DateTaken   time.Time // From EXIF, zero when absent
	CameraMake  string
	CameraModel string
}

// ImageDetails stats an image and reads its EXIF block when there is one.
// Files without readable EXIF still return size and modification time.
func ImageDetails(path string) (*ImageDetail, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	detail := &ImageDetail{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		log.Debug().Str("path", path).Err(err).Msg("no EXIF metadata")
		return detail, nil
	}

	// Priority: DateTimeOriginal > CreateDate
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		detail.DateTaken = t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		detail.DateTaken = t
	}
	detail.CameraMake = strings.TrimSpace(exifData.Make)
	detail.CameraModel = strings.TrimSpace(exifData.Model)

	return detail, nil
}
