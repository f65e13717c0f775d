package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
)

const maxScanTokenSize = 1024 * 1024

// APIClient wraps Hertz Client for HTTP communication with the Cowalsky server
type APIClient struct {
	client *client.Client
	server string
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code     int
	Message  string
	Warnings []string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code)
}

// NewAPIClient creates a new API client
func NewAPIClient(server string) (*APIClient, error) {
	normalizedServer, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// netpoll does not stream SSE bodies, use the standard dialer
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &APIClient{client: c, server: normalizedServer}, nil
}

// Server returns the normalized base URL.
func (c *APIClient) Server() string { return c.server }

// normalizeServerURL ensures a scheme and drops any path or trailing slash
func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL")
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// result is a fully read response, detached from the pooled hertz objects
type result struct {
	status      int
	contentType string
	header      map[string]string
	body        []byte
}

type call struct {
	method      string
	path        string
	contentType string
	accept      string
	body        []byte
	headers     []string
}

func (c *APIClient) do(ctx context.Context, in call) (*result, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(in.method)
	req.SetRequestURI(c.server + in.path)
	if in.contentType != "" {
		req.Header.SetContentTypeBytes([]byte(in.contentType))
	}
	if in.accept != "" {
		req.Header.Set("Accept", in.accept)
	}
	if in.body != nil {
		req.SetBody(in.body)
	}

	if err := c.client.Do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	out := &result{
		status:      resp.StatusCode(),
		contentType: string(resp.Header.ContentType()),
		header:      make(map[string]string, len(in.headers)),
		body:        append([]byte(nil), resp.Body()...),
	}
	for _, key := range in.headers {
		out.header[key] = string(resp.Header.Peek(key))
	}
	return out, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, payload, dst any) error {
	in := call{method: method, path: path, accept: "application/json"}
	if payload != nil {
		body, err := sonic.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		in.body = body
		in.contentType = "application/json"
	}

	res, err := c.do(ctx, in)
	if err != nil {
		return err
	}
	return decode(res, dst)
}

// decode turns error bodies into *StatusError and unmarshals the rest into dst
func decode(res *result, dst any) error {
	if res.status < 200 || res.status >= 300 {
		return statusError(res)
	}
	if dst == nil || len(res.body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(res.body, dst); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func statusError(res *result) error {
	var apiErr types.APIError
	if err := sonic.Unmarshal(res.body, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(res.body))
		if apiErr.Message == "" {
			apiErr.Message = "request failed"
		}
	}
	return &StatusError{Code: res.status, Message: apiErr.Message, Warnings: apiErr.Warnings}
}

// Health reports which provider slots the server has configured
func (c *APIClient) Health(ctx context.Context) (*types.Health, error) {
	var health types.Health
	if err := c.doJSON(ctx, consts.MethodGet, endpointHealth, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Personas lists the persona catalog
func (c *APIClient) Personas(ctx context.Context) ([]types.Persona, error) {
	var personas []types.Persona
	if err := c.doJSON(ctx, consts.MethodGet, endpointPersonas, nil, &personas); err != nil {
		return nil, err
	}
	return personas, nil
}

// CreateSession starts a chat session
func (c *APIClient) CreateSession(ctx context.Context, in types.CreateSessionRequest) (*types.Session, error) {
	var session types.Session
	if err := c.doJSON(ctx, consts.MethodPost, endpointSessions, in, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSettings flips theme and mode toggles of a session
func (c *APIClient) UpdateSettings(ctx context.Context, sessionID string, patch types.SettingsPatch) (*types.Session, error) {
	var session types.Session
	path := fmt.Sprintf(endpointSessionSettings, url.PathEscape(sessionID))
	if err := c.doJSON(ctx, consts.MethodPatch, path, patch, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Messages returns the conversation log in insertion order
func (c *APIClient) Messages(ctx context.Context, sessionID string) ([]types.Message, error) {
	var messages []types.Message
	path := fmt.Sprintf(endpointSessionMessages, url.PathEscape(sessionID))
	if err := c.doJSON(ctx, consts.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// EndSession deletes a session and its log
func (c *APIClient) EndSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf(endpointSession, url.PathEscape(sessionID))
	return c.doJSON(ctx, consts.MethodDelete, path, nil, nil)
}

// SendMessage sends one user message and waits for the full exchange
func (c *APIClient) SendMessage(ctx context.Context, sessionID, content string) (*types.Exchange, error) {
	var exchange types.Exchange
	path := fmt.Sprintf(endpointSessionMessages, url.PathEscape(sessionID))
	payload := map[string]string{"content": content}
	if err := c.doJSON(ctx, consts.MethodPost, path, payload, &exchange); err != nil {
		return nil, err
	}
	return &exchange, nil
}

// StreamMessage sends one user message over SSE. Events arrive as the server
// emits them; both channels are closed when the stream ends.
func (c *APIClient) StreamMessage(ctx context.Context, sessionID, content string) (<-chan types.StreamEvent, <-chan error, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, fmt.Errorf("message is required")
	}

	query := url.Values{"message": {content}}
	uri := c.server + fmt.Sprintf(endpointStream, url.PathEscape(sessionID)) + "?" + query.Encode()

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(uri)
	req.Header.Set("Accept", "text/event-stream")

	if err := c.client.Do(ctx, req, resp); err != nil {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		err := statusError(&result{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)})
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
		return nil, nil, err
	}

	eventCh := make(chan types.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			close(eventCh)
			close(errCh)
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}()

		bodyStream := resp.BodyStream()
		if bodyStream == nil {
			errCh <- fmt.Errorf("body stream is nil")
			return
		}
		parseSSEStream(ctx, bodyStream, eventCh, errCh)
	}()

	return eventCh, errCh, nil
}

// parseSSEStream forwards every data line as an event until end, error or EOF
func parseSSEStream(ctx context.Context, reader io.Reader, eventCh chan<- types.StreamEvent, errCh chan<- error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}

		var event types.StreamEvent
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if err := sonic.Unmarshal([]byte(data), &event); err != nil {
			errCh <- fmt.Errorf("failed to parse event: %w", err)
			return
		}

		select {
		case eventCh <- event:
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		}

		if event.Event == "end" || event.Event == "error" {
			return
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		errCh <- fmt.Errorf("scanner error: %w", err)
	}
}

// ImageDownload is a generated image. Data holds PNG bytes; when the
// provider only returned a URL, Result carries the JSON answer instead.
type ImageDownload struct {
	Data     []byte
	Provider string
	Result   *types.ImageResult
}

// GenerateImage asks for a PNG download of the prompt
func (c *APIClient) GenerateImage(ctx context.Context, prompt string) (*ImageDownload, error) {
	body, err := sonic.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	res, err := c.do(ctx, call{
		method:      consts.MethodPost,
		path:        endpointImages,
		contentType: "application/json",
		accept:      "image/png, application/json",
		body:        body,
		headers:     []string{"X-Image-Provider"},
	})
	if err != nil {
		return nil, err
	}
	if res.status != 200 {
		return nil, statusError(res)
	}

	if strings.HasPrefix(res.contentType, "image/") {
		return &ImageDownload{Data: res.body, Provider: res.header["X-Image-Provider"]}, nil
	}

	var img types.ImageResult
	if err := decode(res, &img); err != nil {
		return nil, err
	}
	return &ImageDownload{Provider: img.Provider, Result: &img}, nil
}

// UploadOptions are the optional form fields of the image tools
type UploadOptions struct {
	PersonaID   string
	SessionID   string
	PenguinMode *bool
}

func (o UploadOptions) fields() map[string]string {
	fields := map[string]string{}
	if o.PersonaID != "" {
		fields["personaId"] = o.PersonaID
	}
	if o.SessionID != "" {
		fields["sessionId"] = o.SessionID
	}
	if o.PenguinMode != nil {
		fields["penguinMode"] = strconv.FormatBool(*o.PenguinMode)
	}
	return fields
}

// AnalyzeImage asks the detective penguin to describe an image
func (c *APIClient) AnalyzeImage(ctx context.Context, filename string, data []byte, opts UploadOptions) (*types.TextResult, error) {
	var out types.TextResult
	if err := c.upload(ctx, endpointAnalyze, filename, data, opts.fields(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractText runs OCR over an image
func (c *APIClient) ExtractText(ctx context.Context, filename string, data []byte) (*types.TextResult, error) {
	var out types.TextResult
	if err := c.upload(ctx, endpointOCR, filename, data, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadExif reads camera, time and GPS metadata of a photo
func (c *APIClient) ReadExif(ctx context.Context, filename string, data []byte) (*types.ExifInfo, error) {
	var out types.ExifInfo
	if err := c.upload(ctx, endpointExif, filename, data, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) upload(ctx context.Context, path, filename string, data []byte, fields map[string]string, dst any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	res, err := c.do(ctx, call{
		method:      consts.MethodPost,
		path:        path,
		contentType: mw.FormDataContentType(),
		accept:      "application/json",
		body:        buf.Bytes(),
	})
	if err != nil {
		return err
	}
	return decode(res, dst)
}

// ExplainScan explains pasted port scan output
func (c *APIClient) ExplainScan(ctx context.Context, in types.ScanRequest) (*types.TextResult, error) {
	var out types.TextResult
	if err := c.doJSON(ctx, consts.MethodPost, endpointScan, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Locate looks up an IP; an empty ip locates the caller
func (c *APIClient) Locate(ctx context.Context, ip string) (*types.Location, error) {
	path := endpointGeo
	if ip != "" {
		path += "?" + url.Values{"ip": {ip}}.Encode()
	}
	var loc types.Location
	if err := c.doJSON(ctx, consts.MethodGet, path, nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// QRCode renders content as a PNG QR code
func (c *APIClient) QRCode(ctx context.Context, content string, size int) ([]byte, error) {
	body, err := sonic.Marshal(map[string]any{"content": content, "size": size})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	res, err := c.do(ctx, call{
		method:      consts.MethodPost,
		path:        endpointQR,
		contentType: "application/json",
		accept:      "image/png",
		body:        body,
	})
	if err != nil {
		return nil, err
	}
	if res.status != 200 {
		return nil, statusError(res)
	}
	return res.body, nil
}

// Audio is synthesized speech
type Audio struct {
	Data        []byte
	ContentType string
	Provider    string
	Fallback    bool
}

// Synthesize turns text into speech. With a session id and no voice the
// server picks the session persona's voice.
func (c *APIClient) Synthesize(ctx context.Context, sessionID, text, voice string) (*Audio, error) {
	body, err := sonic.Marshal(map[string]string{"text": text, "voice": voice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := endpointSynthesize
	if sessionID != "" {
		path = fmt.Sprintf(endpointSynthesizeSession, url.PathEscape(sessionID))
	}
	res, err := c.do(ctx, call{
		method:      consts.MethodPost,
		path:        path,
		contentType: "application/json",
		body:        body,
		headers:     []string{"X-Speech-Provider", "X-Speech-Fallback"},
	})
	if err != nil {
		return nil, err
	}
	if res.status != 200 {
		return nil, statusError(res)
	}
	return &Audio{
		Data:        res.body,
		ContentType: res.contentType,
		Provider:    res.header["X-Speech-Provider"],
		Fallback:    res.header["X-Speech-Fallback"] == "true",
	}, nil
}
