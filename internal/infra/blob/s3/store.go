// Package s3 stores evidence payloads in a single S3-compatible bucket, AWS
// or MinIO. Payload keys map to object keys verbatim.
package s3

import (
	"casefile/internal/blob/core"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store satisfies core.Store against one bucket. Put enforces the shared
// create-only contract with an existence probe, and PresignURL hands out
// time-limited GET links signed by the SDK.
type Store struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient

	baseURL *url.URL // set when a custom endpoint is configured, feeds Info.URL
}

// Config carries explicit construction parameters. Deployments normally go
// through OpenFromEnv; tests and MinIO setups fill this in directly.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // custom endpoint, e.g. a MinIO URL
	AccessKeyID     string // static credentials; default chain when empty
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

func (c Config) regionOrDefault() string {
	if c.Region == "" {
		return "us-east-1"
	}
	return c.Region
}

// New opens the bucket described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.regionOrDefault())}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	store := &Store{client: client, bucket: cfg.Bucket, presign: s3.NewPresignClient(client)}
	if cfg.Endpoint != "" {
		if base, err := url.Parse(cfg.Endpoint); err == nil {
			store.baseURL = base
		}
	}
	return store, nil
}

// OpenFromEnv builds the store from CASEFILE_BLOB_S3_* variables:
//
//	CASEFILE_BLOB_S3_BUCKET      bucket name (required)
//	CASEFILE_BLOB_S3_REGION      region, default us-east-1
//	CASEFILE_BLOB_S3_ENDPOINT    custom endpoint, e.g. MinIO
//	CASEFILE_BLOB_S3_PATH_STYLE  "true" forces path-style addressing
//
// Credentials come from the standard AWS environment or config files.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("CASEFILE_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("s3: CASEFILE_BLOB_S3_BUCKET is required")
	}
	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("CASEFILE_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("CASEFILE_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("CASEFILE_BLOB_S3_PATH_STYLE"), "true"),
	})
}

// Driver reports the configuration name of this backend.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Put uploads a new payload. Keys are create-only across the drivers and
// plain PutObject has no precondition for that, so an existence probe runs
// first.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err == nil {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, fmt.Errorf("s3: put %s: %w", key, err)
	}
	return s.Head(ctx, key)
}

// Get opens the payload for reading together with its metadata.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("s3: get %s: %w", key, err)
	}
	return s.fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.Info{}, fmt.Errorf("s3: head %s: %w", key, err)
	}
	return s.fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete removes the payload. DeleteObject does not report prior existence,
// so a clean response counts as deleted.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return false, fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return true, nil
}

// List walks every object under prefix and returns them sorted by key.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var infos []core.Info
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, core.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}

// PresignURL signs a GET link for the payload. Other methods are not offered.
func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if m := strings.ToUpper(opts.Method); m != "" && m != http.MethodGet {
		return "", core.ErrUnsupported
	}
	expiry := 15 * time.Minute
	if opts.Expiry > 0 {
		expiry = opts.Expiry
	}
	signed, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3: presign %s: %w", key, err)
	}
	return signed.URL, nil
}

// fromHead normalizes the SDK's pointer-heavy response fields into core.Info.
// A missing LastModified falls back to the current time so callers always see
// a usable timestamp.
func (s *Store) fromHead(key string, size int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.Info {
	info := core.Info{
		Key:          key,
		Size:         size,
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     md,
		LastModified: time.Now().UTC(),
	}
	if lastModified != nil {
		info.LastModified = *lastModified
	}
	if s.baseURL != nil {
		info.URL = s.baseURL.JoinPath(s.bucket, key).String()
	}
	return info
}
