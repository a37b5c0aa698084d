// Package render turns queue items into fully addressed mail messages:
// attendee lookup, Liquid body rendering, and certificate attachment.
package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/mailer"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
)

// Options configures the composer's fixed message fields.
type Options struct {
	FromName     string
	FromAddress  string
	SiteURL      string
	Organization string
	ContactEmail string
}

// Composer renders the outgoing message for a queue item. Any failure here
// (missing attendee, renderer error, template error) is reported to the
// worker, which treats it like a transport failure for retry purposes.
type Composer struct {
	attendees recipient.Store
	certs     CertificateRenderer
	opts      Options

	evaluation  *liquid.Template
	certificate *liquid.Template
}

func NewComposer(attendees recipient.Store, certs CertificateRenderer, opts Options) (*Composer, error) {
	engine := liquid.NewEngine()

	eval, err := engine.ParseString(evaluationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse evaluation template: %w", err)
	}
	cert, err := engine.ParseString(certificateTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse certificate template: %w", err)
	}

	if opts.Organization == "" {
		opts.Organization = "Petrosphere"
	}
	if opts.ContactEmail == "" {
		opts.ContactEmail = "info@petros-global.com"
	}

	return &Composer{
		attendees:   attendees,
		certs:       certs,
		opts:        opts,
		evaluation:  eval,
		certificate: cert,
	}, nil
}

// Compose builds the message for one claimed queue item. The destination
// address is the item's snapshot, not the attendee's current address.
func (c *Composer) Compose(ctx context.Context, item *domain.QueueItem) (*mailer.Message, error) {
	att, err := c.attendees.GetByReference(ctx, item.Payload.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("attendee %q: %w", item.Payload.ReferenceID, err)
	}

	switch item.Category {
	case domain.CategoryEvaluation:
		return c.composeEvaluation(item, att)
	case domain.CategoryCertificate:
		return c.composeCertificate(ctx, item, att)
	}
	return nil, fmt.Errorf("unknown category %q", item.Category)
}

func (c *Composer) composeEvaluation(item *domain.QueueItem, att *recipient.Attendee) (*mailer.Message, error) {
	link := fmt.Sprintf("%s/evaluation/%s",
		strings.TrimRight(c.opts.SiteURL, "/"),
		url.PathEscape(att.ReferenceID))

	html, err := c.evaluation.RenderString(liquid.Bindings{
		"organization":    c.opts.Organization,
		"contact_email":   c.opts.ContactEmail,
		"attendee_name":   c.fullName(att),
		"event_name":      att.Event.Name,
		"evaluation_link": link,
	})
	if err != nil {
		return nil, fmt.Errorf("render evaluation body: %w", err)
	}

	return &mailer.Message{
		FromName:    c.opts.FromName,
		FromAddress: c.opts.FromAddress,
		To:          item.Email,
		Subject:     fmt.Sprintf("Evaluation Form - %s", att.Event.Name),
		HTML:        html,
	}, nil
}

func (c *Composer) composeCertificate(ctx context.Context, item *domain.QueueItem, att *recipient.Attendee) (*mailer.Message, error) {
	tpl := item.Payload.TemplateType
	if tpl == "" {
		tpl = domain.TemplateParticipation
	}

	pdf, err := c.certs.Render(ctx, att, tpl)
	if err != nil {
		return nil, fmt.Errorf("certificate for %q: %w", att.ReferenceID, err)
	}

	label := tpl.Label()
	fullName := c.fullName(att)

	html, err := c.certificate.RenderString(liquid.Bindings{
		"organization":      c.opts.Organization,
		"contact_email":     c.opts.ContactEmail,
		"attendee_name":     fullName,
		"event_name":        att.Event.Name,
		"certificate_label": label,
		"year":              time.Now().Year(),
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate body: %w", err)
	}

	filename := fmt.Sprintf("Certificate_%s_%s.pdf",
		label, strings.ReplaceAll(fullName, " ", "_"))

	return &mailer.Message{
		FromName:    c.opts.FromName,
		FromAddress: c.opts.FromAddress,
		To:          item.Email,
		Subject:     fmt.Sprintf("Certificate of %s - %s", label, att.Event.Name),
		HTML:        html,
		Attachments: []mailer.Attachment{
			{
				Filename:    filename,
				ContentType: "application/pdf",
				Content:     pdf,
			},
		},
	}, nil
}

func (c *Composer) fullName(att *recipient.Attendee) string {
	return strings.TrimSpace(
		CapitalizeWords(att.FirstName) + " " + CapitalizeWords(att.LastName))
}
