// Package storage keeps uploaded intake documents in an S3-compatible bucket,
// one folder per business.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned when no bucket is configured
var ErrNotConfigured = errors.New("file storage is not configured")

// Config holds S3 storage configuration
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	PublicBaseURL   string
	RootPrefix      string
}

// objectAPI is the subset of the S3 client used here
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Storage stores files in an S3 bucket
type S3Storage struct {
	api        objectAPI
	bucket     string
	rootPrefix string
	publicBase string
	logger     *logrus.Logger
	now        func() time.Time
}

// NewS3Storage creates a storage client from static credentials
func NewS3Storage(ctx context.Context, cfg Config, logger *logrus.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers usually need path-style URLs
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		if cfg.EndpointURL != "" {
			publicBase = strings.TrimRight(cfg.EndpointURL, "/") + "/" + cfg.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return newS3Storage(client, cfg.Bucket, cfg.RootPrefix, publicBase, logger), nil
}

func newS3Storage(api objectAPI, bucket, rootPrefix, publicBase string, logger *logrus.Logger) *S3Storage {
	return &S3Storage{
		api:        api,
		bucket:     bucket,
		rootPrefix: strings.Trim(rootPrefix, "/"),
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FolderName derives the folder of a business from its name and id
func FolderName(businessName, businessID string) string {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(businessName), "-"), "-")
	if slug == "" {
		return businessID
	}
	return slug + "_" + businessID
}

func (s *S3Storage) folderKey(folder string) string {
	if s.rootPrefix == "" {
		return folder + "/"
	}
	return s.rootPrefix + "/" + folder + "/"
}

// EnsureFolder writes the folder marker object. Writing it twice is harmless.
func (s *S3Storage) EnsureFolder(ctx context.Context, folder string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(folder)),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return fmt.Errorf("failed to create folder %s: %w", folder, err)
	}
	return nil
}

// Upload stores a file as <unix ms>-<original name> inside the folder and
// returns its public URL
func (s *S3Storage) Upload(ctx context.Context, folder, originalName, contentType string, body io.Reader) (string, error) {
	name := unsafeChars.ReplaceAllString(path.Base(originalName), "_")
	key := fmt.Sprintf("%s%d-%s", s.folderKey(folder), s.now().UnixMilli(), name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", originalName, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
	}).Info("Uploaded file to storage")

	return s.publicBase + "/" + key, nil
}

// DeleteFolder removes every object under the folder
func (s *S3Storage) DeleteFolder(ctx context.Context, folder string) error {
	prefix := s.folderKey(folder)
	var token *string
	deleted := 0

	for {
		page, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("failed to list folder %s: %w", folder, err)
		}

		if len(page.Contents) > 0 {
			objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
			}
			_, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return fmt.Errorf("failed to delete folder %s: %w", folder, err)
			}
			deleted += len(objects)
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	s.logger.WithFields(logrus.Fields{
		"folder":  folder,
		"objects": deleted,
	}).Info("Deleted storage folder")
	return nil
}

// Disabled rejects every operation with ErrNotConfigured. Used when no bucket is set.
type Disabled struct{}

// EnsureFolder implements the storage contract
func (Disabled) EnsureFolder(ctx context.Context, folder string) error {
	return ErrNotConfigured
}

// Upload implements the storage contract
func (Disabled) Upload(ctx context.Context, folder, originalName, contentType string, body io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// DeleteFolder implements the storage contract
func (Disabled) DeleteFolder(ctx context.Context, folder string) error {
	return ErrNotConfigured
}
