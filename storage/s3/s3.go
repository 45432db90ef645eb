// Package s3 keeps audio in Amazon S3 or an S3-compatible service.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/scribe/storage"
)

func init() {
	storage.Register(storage.ProviderS3, func(d storage.Deps) (storage.Storage, error) {
		return New(d.Ctx, d.Config)
	})
}

// api is the subset of the S3 client the store calls.
type api interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

type Store struct {
	client  api
	bucket  string
	baseURL string
}

var _ storage.Storage = (*Store)(nil)

// New loads the AWS configuration and builds the client.
func New(ctx context.Context, cfg storage.Config) (*Store, error) {
	sc := cfg.S3
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(sc.Region))
	if sc.AccessKey != "" && sc.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage: %w", err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
		}
		o.UsePathStyle = sc.ForcePathStyle || sc.Endpoint != ""
	})
	base := cfg.PublicBaseURL
	if base == "" {
		base = bucketURL(sc)
	}
	return newStore(client, sc.Bucket, base), nil
}

func newStore(client api, bucket, baseURL string) *Store {
	return &Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// bucketURL is the public address of the bucket when no override is set.
func bucketURL(sc storage.S3Config) string {
	if sc.Endpoint != "" {
		return strings.TrimRight(sc.Endpoint, "/") + "/" + sc.Bucket
	}
	return "https://" + sc.Bucket + ".s3." + sc.Region + ".amazonaws.com"
}

func (s *Store) Name() string { return storage.ProviderS3 }

func (s *Store) IsAvailable(ctx context.Context) bool {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: &s.bucket})
	return err == nil
}

func (s *Store) Put(ctx context.Context, obj storage.Object) error {
	in := &awss3.PutObjectInput{Bucket: &s.bucket, Key: aws.String(obj.Key), Body: obj.Body}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3 put %s: %w", obj.Key, err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: &s.bucket, Key: aws.String(key)})
	if err != nil {
		if missing(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return out.Body, nil
}

// Has only answers false for a definite miss; any other failure is an
// error so callers do not re-upload on a flaky network.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: &s.bucket, Key: aws.String(key)})
	switch {
	case err == nil:
		return true, nil
	case missing(err):
		return false, nil
	}
	return false, fmt.Errorf("s3 head %s: %w", key, err)
}

// Remove relies on S3 treating deletes of missing keys as success.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: &s.bucket, Key: aws.String(key)}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

func missing(err error) bool {
	var nf *types.NotFound
	var nk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nk)
}
