package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"hena/stays/internal/config"
)

// ErrImageTooLarge is returned when a downloaded photo exceeds the configured size.
var ErrImageTooLarge = errors.New("image exceeds max size")

const agentPhotoPrefix = "agents"

// IS3Storage defines the object store operations used by the ingestion pipeline.
type IS3Storage interface {
	MirrorPhoto(ctx context.Context, sourceURL string) (string, error)
}

// ObjectPutter is the part of the S3 client the storage needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Storage struct {
	cfg        *config.Config
	s3Client   ObjectPutter
	httpClient *http.Client
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3StorageWithClient(cfg, s3.NewFromConfig(awsCfg), &http.Client{Timeout: 30 * time.Second}), nil
}

// NewS3StorageWithClient creates the storage around an existing S3 client.
func NewS3StorageWithClient(cfg *config.Config, client ObjectPutter, httpClient *http.Client) IS3Storage {
	return &s3Storage{cfg: cfg, s3Client: client, httpClient: httpClient}
}

// MirrorPhoto downloads an agent photo, shrinks it to the configured maximum
// dimension, stores it as JPEG under a fresh key and returns its public URL.
func (s *s3Storage) MirrorPhoto(ctx context.Context, sourceURL string) (string, error) {
	imgData, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return "", fmt.Errorf("unsupported image format or corrupt image at %s: %w", sourceURL, err)
	}

	maxDim := uint(s.cfg.ImageMaxDimension)
	if maxDim > 0 && (uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim) {
		log.Printf("Resizing photo %s (original: %dx%d, max: %d)", sourceURL, img.Bounds().Dx(), img.Bounds().Dy(), maxDim)
		img = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode %s photo %s: %w", format, sourceURL, err)
	}

	objectKey := fmt.Sprintf("%s/%s.jpg", agentPhotoPrefix, uuid.NewString())
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo %s: %w", objectKey, err)
	}

	return strings.TrimRight(s.cfg.ImageBaseS3URL, "/") + "/" + objectKey, nil
}

func (s *s3Storage) download(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid photo url %s: %w", sourceURL, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download photo %s: status %d", sourceURL, resp.StatusCode)
	}

	maxSizeBytes := int64(s.cfg.ImageMaxSizeMB) * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", sourceURL, err)
	}
	if int64(len(data)) > maxSizeBytes {
		return nil, fmt.Errorf("%w: %s is over %d MB", ErrImageTooLarge, sourceURL, s.cfg.ImageMaxSizeMB)
	}
	return data, nil
}
