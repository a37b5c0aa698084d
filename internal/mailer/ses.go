package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/josephbaria24/petros-event-management-system/internal/config"
)

// SESMailer sends email through AWS SES v2. Messages without attachments use
// the Simple content form; messages with attachments are assembled into a raw
// MIME message, since the simple form cannot carry them.
type SESMailer struct {
	client *sesv2.Client
}

// NewSESMailer builds the SES client from static credentials.
func NewSESMailer(ctx context.Context, cfg config.SES) (*SESMailer, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("SES credentials are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESMailer{client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg *Message) error {
	var content *types.EmailContent

	if len(msg.Attachments) == 0 {
		content = &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		}
	} else {
		raw, err := buildRawMessage(msg)
		if err != nil {
			return fmt.Errorf("build raw message: %w", err)
		}
		content = &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          content,
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	return nil
}

// compile-time check that SESMailer implements Mailer
var _ Mailer = (*SESMailer)(nil)
