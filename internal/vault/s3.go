package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"rgit-go/internal/config"
	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
)

// S3API is the subset of *s3.Client used by S3Vault.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores snapshot blobs as objects under <prefix>/snapshots/<hash>
// in an S3 bucket or S3-compatible store.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   S3API
	uploader *manager.Uploader
}

// NewS3Vault creates a vault on top of an existing client.
func NewS3Vault(name, bucket, prefix string, client S3API) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// NewS3VaultFromConfig builds the S3 client from vault config. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func NewS3VaultFromConfig(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client), nil
}

func (v *S3Vault) key(hash string) string {
	return path.Join(v.prefix, "snapshots", hash)
}

func (v *S3Vault) exists(ctx context.Context, key string) (bool, error) {
	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, fmt.Errorf("checking object %s: %w", key, err)
}

// PutContent uploads content under hash unless an object already exists.
// Snapshot blobs are small, so the body is buffered to verify its size
// before anything is written.
func (v *S3Vault) PutContent(ctx context.Context, hash string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	key := v.key(hash)
	found, err := v.exists(ctx, key)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if _, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (v *S3Vault) GetContent(ctx context.Context, hash string, w io.Writer) error {
	key := v.key(hash)
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("snapshot %s: %w", hash, model.ErrNotFound)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

var _ rgit.Vault = (*S3Vault)(nil)
