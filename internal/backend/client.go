package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	fwerrors "fwpanel/internal/errors"
	"fwpanel/internal/models"

	"github.com/google/uuid"
)

// CaptureResult is the raw answer of the capture/classification service.
// Predictions[i] classifies Packets[i]; nothing else links the two.
type CaptureResult struct {
	Predictions []int                 `json:"predictions"`
	Packets     []models.PacketRecord `json:"packet_data"`
}

// captureResponse keeps absent keys distinguishable from empty arrays.
type captureResponse struct {
	Predictions *[]int                 `json:"predictions"`
	Packets     *[]models.PacketRecord `json:"packet_data"`
}

type captureRequest struct {
	User string `json:"user,omitempty"`
}

type dropRequest struct {
	IP string `json:"ip"`
}

// Client talks to the capture/classification and mitigation services.
type Client struct {
	baseURL     string
	capturePath string
	dropPath    string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient constructs a client for the backend at baseURL. timeout bounds
// every request on top of any context deadline.
func NewClient(baseURL, capturePath, dropPath string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		capturePath: capturePath,
		dropPath:    dropPath,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// StartCapture asks the backend to capture and classify a batch of packets.
// operator is passed through unchanged and omitted when empty.
func (c *Client) StartCapture(ctx context.Context, operator string) (*CaptureResult, error) {
	var resp captureResponse
	if err := c.postJSON(ctx, c.captureURL(), captureRequest{User: operator}, &resp); err != nil {
		return nil, fwerrors.Attr(err, "operation", "start-capture")
	}

	var missing []string
	if resp.Predictions == nil {
		missing = append(missing, "predictions")
	}
	if resp.Packets == nil {
		missing = append(missing, "packet_data")
	}
	if len(missing) > 0 {
		err := fwerrors.Errorf(fwerrors.KindDataIntegrity, "capture response is missing %s", strings.Join(missing, ", "))
		err = fwerrors.Attr(err, "missing", missing)
		return nil, fwerrors.Attr(err, "operation", "start-capture")
	}
	return &CaptureResult{Predictions: *resp.Predictions, Packets: *resp.Packets}, nil
}

// DropPackets asks the backend to drop traffic from ip.
func (c *Client) DropPackets(ctx context.Context, ip string) error {
	if strings.TrimSpace(ip) == "" {
		return fwerrors.New(fwerrors.KindValidation, "source address is empty")
	}
	if err := c.postJSON(ctx, c.dropURL(), dropRequest{IP: ip}, nil); err != nil {
		return fwerrors.Attr(err, "operation", "drop-packets")
	}
	return nil
}

func (c *Client) captureURL() string { return c.resolvePath(c.capturePath) }
func (c *Client) dropURL() string    { return c.resolvePath(c.dropPath) }

// resolvePath joins p onto the base URL, keeping a trailing slash because the
// backend routes are registered with one.
func (c *Client) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	joined := path.Join(u.Path, cleaned)
	if strings.HasSuffix(cleaned, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	u.Path = joined
	return u.String()
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fwerrors.New(fwerrors.KindInternal, "backend base URL not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fwerrors.Wrap(err, fwerrors.KindInternal, "marshal payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fwerrors.Wrap(err, fwerrors.KindInternal, "build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "url", endpoint, "request_id", requestID, "duration", time.Since(start), "error", err)
		return classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("backend response", "url", endpoint, "request_id", requestID, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fwerrors.Errorf(fwerrors.KindServer, "backend returned %s", resp.Status)
		err = fwerrors.Attr(err, "status", resp.StatusCode)
		if len(snippet) > 0 {
			err = fwerrors.Attr(err, "body", strings.TrimSpace(string(snippet)))
		}
		return fwerrors.Attr(err, "request_id", requestID)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fwerrors.Attr(fwerrors.Wrapf(err, fwerrors.KindServer, "decode %s response", path.Base(endpoint)), "request_id", requestID)
	}
	return nil
}

func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return fwerrors.Wrap(ctxErr, fwerrors.KindTimeout, "backend request timed out")
		}
		return fwerrors.Wrap(ctxErr, fwerrors.KindTransport, "backend request cancelled")
	}
	var netErr net.Error
	if fwerrors.As(err, &netErr) && netErr.Timeout() {
		return fwerrors.Wrap(err, fwerrors.KindTimeout, "backend request timed out")
	}
	return fwerrors.Wrap(err, fwerrors.KindTransport, "backend unreachable")
}
