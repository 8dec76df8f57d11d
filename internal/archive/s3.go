package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"shareledger/internal/config"
	"shareledger/internal/ledger"
)

// S3Archive stores exports as objects in an S3 (or S3-compatible) bucket
// under a fixed key prefix.
type S3Archive struct {
	name   string
	bucket string
	prefix string

	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Archive creates an S3 archive from the given configuration.
// Credentials come from the config when set, otherwise from the default
// AWS credential chain.
func NewS3Archive(cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires s3_bucket to be set")
	}
	if cfg.S3Region == "" {
		return nil, fmt.Errorf("s3 archive requires s3_region to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// S3-compatible stores generally do not support
			// virtual-hosted bucket addressing.
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   normalizePrefix(cfg.S3Prefix),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// normalizePrefix ensures a non-empty prefix ends with exactly one slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (a *S3Archive) key(name string) string {
	return a.prefix + name
}

// PutExport uploads a named export. Re-storing a name overwrites the object.
func (a *S3Archive) PutExport(name string, r io.Reader, size int64) error {
	_, err := a.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key(name)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading export %s: %w", name, err)
	}
	return nil
}

// GetExport downloads a named export and writes it to w.
func (a *S3Archive) GetExport(name string, w io.Writer) error {
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("export not found: %s", name)
		}
		return fmt.Errorf("downloading export %s: %w", name, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading export %s: %w", name, err)
	}
	return nil
}

// ListExports lists object names under the archive prefix in lexicographic order.
func (a *S3Archive) ListExports() ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing exports: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), a.prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup checks that the bucket is reachable with the configured credentials.
func (a *S3Archive) ValidateSetup() error {
	_, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", a.bucket, err)
	}
	return nil
}

// Compile-time check that S3Archive implements the Archive interface
var _ ledger.Archive = (*S3Archive)(nil)
