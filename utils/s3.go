package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

var ErrInvalidImage = errors.New("invalid base64 image")

var s3Client *s3.Client

// InitS3 must be called once at startup (e.g. in main.go).
func InitS3(ctx context.Context) error {
	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = os.Getenv("AWS_REGION") // fallback
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s3Region))
	if err != nil {
		return fmt.Errorf("unable to load AWS config for S3: %w", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	return nil
}

// DataURI is a decoded "data:<mime>;base64,<data>" image.
type DataURI struct {
	ContentType string
	Ext         string
	Data        []byte
}

func ParseDataURI(base64Data string) (*DataURI, error) {
	meta, data, ok := strings.Cut(base64Data, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidImage
	}

	contentType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, contentType)
	}

	var ext string
	switch contentType {
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	default:
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		} else {
			// fallback: use subtype
			ext = "." + strings.TrimPrefix(contentType, "image/")
		}
	}

	imageData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(imageData) == 0 {
		return nil, ErrInvalidImage
	}
	return &DataURI{ContentType: contentType, Ext: ext, Data: imageData}, nil
}

// UploadAnalysisImage stores a captured image and returns its object key.
func UploadAnalysisImage(ctx context.Context, img *DataURI, personID string) (string, error) {
	if s3Client == nil {
		return "", errors.New("S3 client not initialized")
	}
	key := fmt.Sprintf("analyses/%s/%s%s", personID, uuid.NewString(), img.Ext)

	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("S3_BUCKET")),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

// ImageURL returns the public URL for an image reference. Absolute URLs
// from the legacy backend pass through unchanged.
func ImageURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	cfURL := strings.TrimRight(os.Getenv("CLOUDFRONT_URL"), "/")
	return fmt.Sprintf("%s/%s", cfURL, strings.TrimLeft(ref, "/"))
}
