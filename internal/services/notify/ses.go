package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// SESConfig holds settings for e-mail notifications through Amazon SES
type SESConfig struct {
	Region string
	// From is the sender address; notifications are disabled without it
	From     string
	FromName string
	// AdminTo receives pending-approval notices
	AdminTo string
}

// emailSender is the part of the SES client the notifier uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier sends notifications as e-mail through Amazon SES v2
type SESNotifier struct {
	client emailSender
	cfg    SESConfig
	logger *slog.Logger
}

// Ensure SESNotifier implements Notifier
var _ Notifier = (*SESNotifier)(nil)

// New returns an SES notifier when cfg.From is set, and a LogNotifier otherwise
func New(ctx context.Context, cfg SESConfig, logger *slog.Logger) (Notifier, error) {
	if cfg.From == "" {
		logger.Info("email notifications disabled: no sender address configured")
		return NewLogNotifier(logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email notifications enabled", "from", cfg.From, "region", cfg.Region)
	return newSESNotifier(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newSESNotifier(client emailSender, cfg SESConfig, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{client: client, cfg: cfg, logger: logger}
}

func (n *SESNotifier) TherapistPending(ctx context.Context, therapist *model.User) error {
	if n.cfg.AdminTo == "" {
		n.logger.DebugContext(ctx, "no admin address, skipping pending notice", "username", therapist.Username)
		return nil
	}

	subject := "JoyVerse: therapist awaiting approval"
	body := fmt.Sprintf("Therapist %q (%s) has signed up and is waiting for approval.\n",
		therapist.Username, therapist.Email)
	return n.send(ctx, n.cfg.AdminTo, subject, body)
}

func (n *SESNotifier) TherapistApproved(ctx context.Context, therapist *model.User) error {
	if therapist.Email == "" {
		n.logger.DebugContext(ctx, "therapist has no email, skipping approval notice", "username", therapist.Username)
		return nil
	}

	subject := "JoyVerse: your account has been approved"
	body := fmt.Sprintf("Hi %s,\n\nAn administrator approved your therapist account. You can now log in.\n",
		therapist.Username)
	return n.send(ctx, therapist.Email, subject, body)
}

func (n *SESNotifier) send(ctx context.Context, to, subject, body string) error {
	from := n.cfg.From
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", n.cfg.FromName, n.cfg.From)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	n.logger.InfoContext(ctx, "email sent", "to", to, "message_id", aws.ToString(out.MessageId))
	return nil
}
