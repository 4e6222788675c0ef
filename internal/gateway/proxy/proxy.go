package proxy

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Proxy Handler
// ============================================================

// Upstream forwards requests to one backing service.
type Upstream struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewUpstream(name, baseURL string, timeout time.Duration) *Upstream {
	return &Upstream{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (u *Upstream) Name() string    { return u.name }
func (u *Upstream) BaseURL() string { return u.baseURL }

// Mount forwards every method under prefix to the upstream, stripping the
// prefix and keeping the query string.
func (u *Upstream) Mount(router fiber.Router, prefix string) {
	handler := func(c fiber.Ctx) error {
		return u.Forward(c, "/"+c.Params("*"))
	}
	router.All(prefix, handler)
	router.All(prefix+"/*", handler)
}

// Forward sends the current request to path on the upstream.
func (u *Upstream) Forward(c fiber.Ctx, path string) error {
	target := u.baseURL + path
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		target += "?" + qs
	}

	log.Printf("[PROXY] %s %s -> %s", c.Method(), c.Path(), target)

	contentType := c.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return u.sendRaw(c, target, contentType)
	}
	return u.sendMultipart(c, target)
}

func (u *Upstream) sendRaw(c fiber.Ctx, target, contentType string) error {
	var body io.Reader
	if len(c.Body()) > 0 {
		body = bytes.NewReader(c.Body())
	}
	req, err := http.NewRequestWithContext(c.Context(), c.Method(), target, body)
	if err != nil {
		log.Printf("[PROXY] build request error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept := c.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	return u.do(c, req)
}

// sendMultipart re-encodes the parsed form for the upstream.
func (u *Upstream) sendMultipart(c fiber.Ctx, target string) error {
	form, err := c.MultipartForm()
	if err != nil {
		log.Printf("[PROXY] Failed to parse multipart: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart data"})
	}

	body, contentType, err := encodeForm(form)
	if err != nil {
		log.Printf("[PROXY] Failed to re-encode multipart: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart data"})
	}

	req, err := http.NewRequestWithContext(c.Context(), c.Method(), target, body)
	if err != nil {
		log.Printf("[PROXY] build multipart request error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	req.Header.Set("Content-Type", contentType)

	return u.do(c, req)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// encodeForm writes every file and value of form into a new multipart body.
// Any part that cannot be read or written fails the whole body.
func encodeForm(form *multipart.Form) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, files := range form.File {
		for _, fileHeader := range files {
			if err := copyFile(writer, key, fileHeader); err != nil {
				return nil, "", err
			}
		}
	}

	for key, values := range form.Value {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("field %s: %w", key, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func copyFile(writer *multipart.Writer, key string, fileHeader *multipart.FileHeader) error {
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(key), quoteEscaper.Replace(fileHeader.Filename)))
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
		h.Set("Content-Type", ct)
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", key, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy %s: %w", fileHeader.Filename, err)
	}
	return nil
}

func (u *Upstream) do(c fiber.Ctx, req *http.Request) error {
	resp, err := u.client.Do(req)
	if err != nil {
		log.Printf("[PROXY] %s error: %v", u.name, err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": fmt.Sprintf("failed to reach %s service", u.name)})
	}
	defer resp.Body.Close()

	return copyResponse(c, resp)
}

// hopHeaders are owned by the connection, not the payload.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
}

func copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PROXY] Read response error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		if len(values) > 0 {
			c.Set(key, values[0])
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}
