package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
)

// CertificateRenderer produces the PDF certificate for an attendee. The
// compositing itself (template image, text overlay) lives outside the queue;
// the worker only needs the finished bytes to attach.
type CertificateRenderer interface {
	Render(ctx context.Context, att *recipient.Attendee, tpl domain.TemplateType) ([]byte, error)
}

// HTTPCertificateRenderer fetches certificates from the rendering service.
// The base URL is injected from config so tests can point to a local mock.
type HTTPCertificateRenderer struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPCertificateRenderer(baseURL string, timeout time.Duration) *HTTPCertificateRenderer {
	return &HTTPCertificateRenderer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Render posts the attendee and template selection to the renderer and
// expects a 200 response with the PDF body.
func (r *HTTPCertificateRenderer) Render(ctx context.Context, att *recipient.Attendee, tpl domain.TemplateType) ([]byte, error) {
	body := fmt.Sprintf(
		`{"reference_id":%q,"event_id":%d,"template_type":%q}`,
		att.ReferenceID, att.Event.ID, tpl,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected renderer status: %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read certificate body: %w", err)
	}
	return pdf, nil
}

// compile-time check that HTTPCertificateRenderer implements CertificateRenderer
var _ CertificateRenderer = (*HTTPCertificateRenderer)(nil)
