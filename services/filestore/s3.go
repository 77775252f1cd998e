package filestore

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
)

// S3API is the part of the s3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client   S3API
	bucket   string
	region   string
	endpoint string
}

var _ core.FileStore = (*S3Store)(nil)

// NewS3Store loads the AWS credentials from the environment (or shared config) and returns a store on conf's bucket.
// A custom endpoint (minio, localstack) switches the client to path-style addressing.
func NewS3Store(ctx context.Context, conf *core.Config) (*S3Store, error) {
	opts := make([]func(*config.LoadOptions) error, 0, 1)
	if conf.Storage.S3Region != "" {
		opts = append(opts, config.WithRegion(conf.Storage.S3Region))
	}
	awsConf, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	endpoint := strings.TrimSuffix(conf.Storage.S3Endpoint, "/")
	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, conf.Storage.S3Bucket, awsConf.Region, endpoint), nil
}

func NewS3StoreWithClient(client S3API, bucket, region, endpoint string) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region, endpoint: endpoint}
}

func (s *S3Store) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := s.client.PutObject(ctx, in)
	return errors.Wrapf(err, "putting object %q", key)
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.NewNotFoundError("file")
		}
		return nil, errors.Wrapf(err, "getting object %q", key)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	return errors.Wrapf(err, "deleting object %q", key)
}

func (s *S3Store) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + escaped
	}
	return "https://" + s.bucket + ".s3." + s.region + ".amazonaws.com/" + escaped
}
