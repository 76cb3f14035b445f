package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"renalscan/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// SNSAPI is the part of the SNS client push delivery uses.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

type PushService struct {
	db             *gorm.DB
	sns            SNSAPI
	fcmPlatformArn string
	log            *zap.Logger
}

func NewPushService(ctx context.Context, db *gorm.DB, log *zap.Logger) (*PushService, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewPushServiceWithClient(db, awssns.NewFromConfig(cfg), os.Getenv("SNS_FCM_ARN"), log), nil
}

// NewPushServiceWithClient wires an already built SNS client.
func NewPushServiceWithClient(db *gorm.DB, client SNSAPI, fcmPlatformArn string, log *zap.Logger) *PushService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PushService{db: db, sns: client, fcmPlatformArn: fcmPlatformArn, log: log}
}

type RegisterDeviceReq struct {
	Platform string `json:"platform" binding:"required,oneof=android ios"`
	Token    string `json:"token" binding:"required"`
}

func tokenHash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

func (p *PushService) platformArn(platform string) (string, error) {
	switch strings.ToLower(platform) {
	case "android", "ios":
		if p.fcmPlatformArn == "" {
			return "", errors.New("SNS_FCM_ARN not set")
		}
		return p.fcmPlatformArn, nil
	default:
		return "", ErrUnknownPlatform
	}
}

func (p *PushService) RegisterDevice(ctx context.Context, personID, platform, token string) (*models.UserDevice, error) {
	appArn, err := p.platformArn(platform)
	if err != nil {
		return nil, err
	}

	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(token),
	})
	if err != nil {
		return nil, err
	}

	dev := &models.UserDevice{
		PersonID:    personID,
		Platform:    strings.ToLower(platform),
		TokenHash:   tokenHash(token),
		EndpointARN: aws.ToString(out.EndpointArn),
		Enabled:     true,
		UpdatedAt:   time.Now(),
	}
	var existing models.UserDevice
	if err := p.db.WithContext(ctx).Where("person_id = ? AND token_hash = ?", personID, dev.TokenHash).First(&existing).Error; err == nil {
		existing.EndpointARN = dev.EndpointARN
		existing.Platform = dev.Platform
		existing.Enabled = true
		existing.UpdatedAt = time.Now()
		if err := p.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err := p.db.WithContext(ctx).Create(dev).Error; err != nil {
		return nil, err
	}
	return dev, nil
}

func pushMessage(title, body string, data map[string]string) (string, error) {
	msg := map[string]any{
		"default": body,
		"GCM": map[string]any{
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}
	raw, err := json.Marshal(msg)
	return string(raw), err
}

func (p *PushService) PushToPerson(personID, title, body string, data map[string]string) {
	var endpoints []models.UserDevice
	if err := p.db.Where("person_id = ? AND enabled = ?", personID, true).Find(&endpoints).Error; err != nil {
		p.log.Warn("load devices", zap.String("person_id", personID), zap.Error(err))
		return
	}
	if len(endpoints) == 0 {
		return
	}

	raw, err := pushMessage(title, body, data)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, d := range endpoints {
		if _, err := p.sns.Publish(ctx, &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(raw),
			TargetArn:        aws.String(d.EndpointARN),
		}); err != nil {
			p.log.Warn("sns publish", zap.Uint("device_id", d.ID), zap.Error(err))
		}
	}
}
