package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store stores images in an S3 bucket with a public-read ACL.
type S3Store struct {
	client   S3API
	bucket   string
	region   string
	endpoint string
}

// NewS3Store builds an S3 client from the default AWS credential chain.
// Static credentials in settings take precedence over the chain.
func NewS3Store(ctx context.Context, settings conf.S3Settings) (*S3Store, error) {
	if settings.Bucket == "" {
		return nil, errors.Newf("s3: bucket is required").
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(settings.Region)}
	if settings.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(err).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Context("operation", "load_aws_config").
			Build()
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		o.UsePathStyle = settings.UsePathStyle
	})

	return NewS3StoreWithClient(client, settings), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, settings conf.S3Settings) *S3Store {
	return &S3Store{
		client:   client,
		bucket:   settings.Bucket,
		region:   settings.Region,
		endpoint: settings.Endpoint,
	}
}

// Name implements ObjectStore.
func (s *S3Store) Name() string { return "s3" }

// Put implements ObjectStore.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
		CacheControl:  aws.String(CacheControl),
	})
	if err != nil {
		return nil, uploadError(err, s.Name(), key)
	}

	obj := newObject(key, len(data), contentType, s.location(key))
	obj.Bucket = s.bucket
	obj.ETag = aws.ToString(out.ETag)
	return obj, nil
}

func (s *S3Store) location(key string) string {
	if s.endpoint != "" {
		return joinURL(joinURL(s.endpoint, s.bucket), key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
