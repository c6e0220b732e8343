package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/rs/zerolog/log"
)

const timeLayout = "2006-01-02 15:04:05"

// Render fills a mustache template with a session and its images.
// Images that cannot be read are listed with their path only.
func Render(tmpl string, s models.Session, images []string, now time.Time) (string, error) {
	imageData := make([]map[string]any, 0, len(images))
	for _, path := range images {
		entry := map[string]any{
			"name": filepath.Base(path),
			"path": path,
			"size": "unknown",
		}

		detail, err := storage.ImageDetails(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping image details")
		} else {
			entry["size"] = humanize.Bytes(uint64(detail.Size))
			if !detail.DateTaken.IsZero() {
				entry["date_taken"] = detail.DateTaken.Format(timeLayout)
			}
			if camera := cameraName(detail); camera != "" {
				entry["camera"] = camera
			}
		}
		imageData = append(imageData, entry)
	}

	recorded := s.CreatedAt()
	data := map[string]any{
		"session_id":     s.SessionID,
		"name":           s.Name,
		"age":            s.Age,
		"recorded":       recorded.Format(timeLayout),
		"recorded_ago":   humanize.RelTime(recorded, now, "ago", "from now"),
		"image_count":    s.ImageCount,
		"on_disk":        len(images),
		"missing_images": len(images) != s.ImageCount,
		"images":         imageData,
	}

	out, err := mustache.Render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

func cameraName(d *storage.ImageDetail) string {
	switch {
	case d.CameraMake != "" && d.CameraModel != "":
		return d.CameraMake + " " + d.CameraModel
	case d.CameraModel != "":
		return d.CameraModel
	default:
		return d.CameraMake
	}
}
