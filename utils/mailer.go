package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var sesClient *ses.Client

// InitMailer must be called once at startup, like InitS3.
func InitMailer(ctx context.Context) error {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("AWS config load failed: %w", err)
	}
	sesClient = ses.NewFromConfig(cfg)
	return nil
}

// generic SES sender
func sendEmail(ctx context.Context, to string, subject string, body string) error {
	if sesClient == nil {
		return errors.New("SES client not initialized")
	}
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(os.Getenv("SES_EMAIL")),
	}

	if _, err := sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

// AnalysisReport is the plain-text content of a shared analysis.
type AnalysisReport struct {
	Name            string
	AnalyzedAt      string
	Conclusion      string
	Minerals        []Classification
	Recommendations string
	ImageURL        string
}

func (r AnalysisReport) Subject() string {
	return fmt.Sprintf("Food analysis: %s", r.Name)
}

func (r AnalysisReport) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nAnalysed: %s\n\n", r.Name, r.AnalyzedAt)
	if r.Conclusion != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Conclusion)
	}
	b.WriteString("Renal minerals\n")
	for _, c := range r.Minerals {
		fmt.Fprintf(&b, "- %s: %s (%d%% of %.0f mg, %s)\n",
			c.Mineral, FormatMilligrams(c.Value), c.PercentOfLimit, c.MaxLimit, c.Status)
	}
	if r.Recommendations != "" {
		fmt.Fprintf(&b, "\nRecommendations\n%s\n", r.Recommendations)
	}
	if r.ImageURL != "" {
		fmt.Fprintf(&b, "\nImage: %s\n", r.ImageURL)
	}
	return b.String()
}

// SendAnalysisReport emails an analysis summary, e.g. to a care team.
func SendAnalysisReport(ctx context.Context, to string, r AnalysisReport) error {
	return sendEmail(ctx, to, r.Subject(), r.Body())
}
