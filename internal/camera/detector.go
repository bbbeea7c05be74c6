package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vigil/internal/detection"
)

// HTTPDetector sends frames to the external object-detection service and
// parses its per-frame response. The service receives the encoded frame as
// the request body and answers with the detected boxes for that frame.
type HTTPDetector struct {
	url    string
	client *http.Client
}

// NewHTTPDetector creates a detector client for the given endpoint.
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type wireDetection struct {
	TrackID    int     `json:"track_id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

type wireResponse struct {
	Detections []wireDetection `json:"detections"`
}

// Detect posts one frame and returns the boxes the service reported.
// Failures are returned to the caller, which logs and skips the frame; a
// flaky detector degrades tracking but never stops the camera loop.
func (d *HTTPDetector) Detect(ctx context.Context, frame detection.Frame) ([]detection.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Camera-ID", frame.CameraID)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect frame for camera %s: %w", frame.CameraID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}

	detections := make([]detection.Detection, 0, len(parsed.Detections))
	for _, det := range parsed.Detections {
		detections = append(detections, detection.Detection{
			TrackID:    det.TrackID,
			Box:        detection.BoundingBox{X: det.X, Y: det.Y, W: det.W, H: det.H},
			Confidence: det.Confidence,
		})
	}
	return detections, nil
}
