package services

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type RekognitionService struct {
	client *rekognition.Client
}

func NewRekognitionService(ctx context.Context, region string) (*RekognitionService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &RekognitionService{client: rekognition.NewFromConfig(cfg)}, nil
}

// RecognizeLabels returns the top labels for a decoded image.
func (r *RekognitionService) RecognizeLabels(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(5),
		MinConfidence: aws.Float32(75),
	})
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, l := range out.Labels {
		labels = append(labels, aws.ToString(l.Name))
	}
	return labels, nil
}
