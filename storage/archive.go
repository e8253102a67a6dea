package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nijaru/yt-adwatch/config"
	"github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/models"
)

// Archive keeps a JSON copy of each run's rows in an S3-compatible bucket
// (AWS, DigitalOcean Spaces, MinIO). A zero Archive is disabled.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

type Snapshot struct {
	RunID      string          `json:"run_id"`
	Date       string          `json:"date"`
	ArchivedAt time.Time       `json:"archived_at"`
	Videos     []*models.Video `json:"videos"`
}

func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	const op = "storage.NewArchive"

	if cfg.Bucket == "" {
		return &Archive{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Storage(op, err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (a *Archive) Enabled() bool {
	return a != nil && a.client != nil
}

// Key returns the object key for a run: <prefix>/<date>/<runID>.json.
func (a *Archive) Key(date, runID string) string {
	return path.Join(a.prefix, date, fmt.Sprintf("%s.json", runID))
}

// Put uploads the run's rows. It is a no-op on a disabled archive.
func (a *Archive) Put(ctx context.Context, runID, date string, videos []*models.Video) error {
	const op = "storage.Archive.Put"

	if !a.Enabled() {
		return nil
	}

	data, err := json.Marshal(Snapshot{
		RunID:      runID,
		Date:       date,
		ArchivedAt: time.Now().UTC(),
		Videos:     videos,
	})
	if err != nil {
		return errors.Internal(op, err, "failed to marshal snapshot")
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(date, runID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Storage(op, err, "failed to upload snapshot")
	}
	return nil
}

// Get reads a previously archived run.
func (a *Archive) Get(ctx context.Context, date, runID string) (*Snapshot, error) {
	const op = "storage.Archive.Get"

	if !a.Enabled() {
		return nil, errors.Storage(op, nil, "archive is disabled")
	}

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.Key(date, runID)),
	})
	if err != nil {
		return nil, errors.Storage(op, err, "failed to fetch snapshot")
	}
	defer result.Body.Close()

	var snap Snapshot
	if err := json.NewDecoder(result.Body).Decode(&snap); err != nil {
		return nil, errors.Storage(op, err, "failed to decode snapshot")
	}
	return &snap, nil
}
