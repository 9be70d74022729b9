package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// VerifyResult is the outcome of a 1:1 comparison. Distance is the raw
// metric distance; lower means more similar.
type VerifyResult struct {
	Verified bool    `json:"verified"`
	Distance float64 `json:"distance"`
}

// Options carry the recognition model, distance metric and decision
// threshold. They are deployment configuration, not code: every matching
// call uses the same values so stored confidence scores stay comparable.
type Options struct {
	Model     string
	Metric    string
	Threshold float64
}

// Client calls the face recognition sidecar. With Skip set it returns
// deterministic results so the rest of the stack can run without the
// recognizer.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Opts    Options
	Skip    bool
}

// New creates a client.
func New(baseURL string, opts Options, timeout time.Duration, skip bool) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second // face comparison can take a while
	}
	return &Client{
		BaseURL: baseURL,
		Opts:    opts,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Verify compares a probe image file against a gallery image file. A "no
// face found" result comes back as Verified=false, not an error.
func (c *Client) Verify(ctx context.Context, probePath, galleryPath string) (VerifyResult, error) {
	if c.Skip {
		return VerifyResult{Verified: true, Distance: 0.25}, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := attachFile(w, "img1", probePath); err != nil {
		return VerifyResult{}, err
	}
	if err := attachFile(w, "img2", galleryPath); err != nil {
		return VerifyResult{}, err
	}
	_ = w.WriteField("model_name", c.Opts.Model)
	_ = w.WriteField("distance_metric", c.Opts.Metric)
	_ = w.WriteField("threshold", strconv.FormatFloat(c.Opts.Threshold, 'f', -1, 64))
	w.Close()

	body, err := c.post(ctx, "/verify", &buf, w.FormDataContentType())
	if err != nil {
		return VerifyResult{}, err
	}

	var out VerifyResult
	if err := json.Unmarshal(body, &out); err != nil {
		return VerifyResult{}, fmt.Errorf("decode verify response: %w", err)
	}
	return out, nil
}

// DetectFaces extracts every face found in an image and returns the crops
// as jpeg bytes in detection order. Zero faces is a normal empty result.
func (c *Client) DetectFaces(ctx context.Context, imagePath string) ([][]byte, error) {
	if c.Skip {
		return nil, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := attachFile(w, "img", imagePath); err != nil {
		return nil, err
	}
	w.Close()

	body, err := c.post(ctx, "/extract", &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var out struct {
		Faces []string `json:"faces"` // base64 jpeg crops
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}

	crops := make([][]byte, 0, len(out.Faces))
	for _, f := range out.Faces {
		data, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("decode face crop: %w", err)
		}
		crops = append(crops, data)
	}
	return crops, nil
}

// Health checks if the face service is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(data))
	}
	return data, nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}
