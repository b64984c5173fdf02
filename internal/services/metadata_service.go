// internal/services/metadata_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/chaincert/chaincert-backend/internal/config"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

// MetadataService stores product description documents. The registry
// only records the returned URI; it never reads the document back.
type MetadataService struct {
	s3Client *s3.S3
	config   *config.Config
}

// ProductMetadata is the JSON document referenced by a product's
// metadata URI. Shape follows the ERC-721 metadata convention the
// frontend expects.
type ProductMetadata struct {
	Name        string            `json:"name" validate:"required,min=1,max=255"`
	Description string            `json:"description" validate:"required,min=1"`
	Image       string            `json:"image,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type MetadataUploadResult struct {
	URI  string `json:"uri"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

func NewMetadataService(cfg *config.Config) (*MetadataService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &MetadataService{config: cfg}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &MetadataService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// UploadMetadata serializes the document and stores it, returning the
// URI to record at mint time.
func (s *MetadataService) UploadMetadata(doc *ProductMetadata) (*MetadataUploadResult, error) {
	if err := utils.ValidateStruct(doc); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	key := s.generateKey()

	if s.s3Client != nil {
		return s.uploadToS3(data, key)
	}
	return s.uploadToLocal(data, key)
}

func (s *MetadataService) uploadToS3(data []byte, key string) (*MetadataUploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           aws.String("public-read"),
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &MetadataUploadResult{
		URI:  s.getS3URL(key),
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

func (s *MetadataService) uploadToLocal(data []byte, key string) (*MetadataUploadResult, error) {
	// For local development, we'll simulate document storage
	uri := fmt.Sprintf("http://localhost:8080/metadata/%s", key)

	return &MetadataUploadResult{
		URI:  uri,
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

func (s *MetadataService) DeleteMetadata(key string) error {
	if s.s3Client == nil {
		// Local development - just log
		fmt.Printf("Metadata would be deleted: %s\n", key)
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		return fmt.Errorf("failed to delete metadata from S3: %w", err)
	}

	return nil
}

func (s *MetadataService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *MetadataService) generateKey() string {
	id := uuid.New()
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("metadata/%s_%s.json", timestamp, id.String()[:8])
}

func (s *MetadataService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}
