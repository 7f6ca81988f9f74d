package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/slmtnm/s4admin/internal/config"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediapath"
	"github.com/slmtnm/s4admin/internal/metrics"
)

// S3Store keeps media objects in an S3 bucket.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store creates a store from the storage section of the configuration.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if !cfg.Configured() {
		return nil, errors.New("storage section needs access_key, secret_key and bucket")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.EndpointURL())
		o.UsePathStyle = true // Required for MinIO and some S3-compatible services
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.EndpointURL() + "/" + cfg.Bucket
	}

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStorageOperation(op, time.Since(start), err == nil)
	if err != nil {
		logging.Warn("storage operation failed", logging.String("operation", op), logging.Err(err))
	}
}

// Folders walks every key below prefix. S3 has no folder objects, so the
// folder set is derived from the keys.
func (c *S3Store) Folders(ctx context.Context, prefix string) (folders []string, err error) {
	start := time.Now()
	defer func() { observe("list_folders", start, err) }()

	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if prefix = mediapath.Normalize(prefix); prefix != "" {
		input.Prefix = aws.String(prefix + "/")
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				// A directory marker "a/b/" names the folder "a/b".
				key += "_"
			}
			keys = append(keys, key)
		}
	}
	return foldersOf(keys, prefix), nil
}

// Objects lists the files directly inside folder using the delimiter.
func (c *S3Store) Objects(ctx context.Context, folder string) (objects []Object, err error) {
	start := time.Now()
	defer func() { observe("list_objects", start, err) }()

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Delimiter: aws.String("/"),
	}
	if folder = mediapath.Normalize(folder); folder != "" {
		input.Prefix = aws.String(folder + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") { // Skip directory markers
				continue
			}
			objects = append(objects, fromS3(obj))
		}
	}
	return objects, nil
}

func fromS3(obj types.Object) Object {
	o := Object{
		Key:  aws.ToString(obj.Key),
		Size: aws.ToInt64(obj.Size),
	}
	if obj.LastModified != nil {
		o.LastModified = *obj.LastModified
	}
	return o
}

func (c *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (err error) {
	start := time.Now()
	defer func() { observe("put_object", start, err) }()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (c *S3Store) URL(key string) string {
	return c.publicURL + "/" + key
}

// Check verifies the bucket exists and is accessible.
func (c *S3Store) Check(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("head_bucket", start, err) }()

	_, err = c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var notFound *types.NotFound
		var noSuchBucket *types.NoSuchBucket
		if errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
			return fmt.Errorf("bucket '%s' does not exist", c.bucket)
		}
		return fmt.Errorf("failed to access bucket '%s': %w", c.bucket, err)
	}
	return nil
}
