// Package exports hands out presigned object storage URLs for note export
// archives. The server never sees the archive bytes.
package exports

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const DefaultExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Settings locate the S3-compatible bucket exports are written to.
type Settings struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	Expiry       time.Duration
}

// Export is a pair of presigned URLs for one archive key.
type Export struct {
	Key         string
	UploadURL   string
	DownloadURL string
}

type Presigner struct {
	settings Settings
	client   *s3.PresignClient
	newKey   func(userID string) string
}

func Key(userID string) string {
	return fmt.Sprintf("exports/%s/%s.zip", userID, uuid.NewString())
}

func NewPresigner(ctx context.Context, s Settings) (*Presigner, error) {
	if s.Expiry <= 0 {
		s.Expiry = DefaultExpiry
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &Presigner{settings: s, client: s3.NewPresignClient(client), newKey: Key}, nil
}

// PresignExport reserves a fresh key under the user's prefix and signs a
// PUT for uploading the archive and a GET for downloading it.
func (p *Presigner) PresignExport(ctx context.Context, userID string) (*Export, error) {
	if userID == "" {
		return nil, fmt.Errorf("presign export: empty user id")
	}

	bucket := p.settings.Bucket
	key := p.newKey(userID)
	expires := s3.WithPresignExpires(p.settings.Expiry)

	put, err := presignPutObject(p.client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, expires)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	get, err := presignGetObject(p.client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, expires)
	if err != nil {
		return nil, fmt.Errorf("presign get: %w", err)
	}

	return &Export{Key: key, UploadURL: put.URL, DownloadURL: get.URL}, nil
}
