package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Backend
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds connection details for an S3-compatible server
type S3Config struct {
	Server    string
	Bucket    string
	Path      string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Endpoint returns the base URL of the server
func (c S3Config) Endpoint() string {
	if strings.HasPrefix(c.Server, "http://") || strings.HasPrefix(c.Server, "https://") {
		return c.Server
	}
	if c.UseSSL {
		return "https://" + c.Server
	}
	return "http://" + c.Server
}

// S3Backend stores photos in a bucket, optionally below a key prefix
type S3Backend struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Client connects to an S3-compatible server using static credentials
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Server != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint())
		}
		o.UsePathStyle = true
	})
	return NewS3Backend(client, cfg.Bucket, cfg.Path), nil
}

// NewS3Backend wraps an existing client
func NewS3Backend(client S3API, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// List returns every object below prefix, keyed relative to the backend prefix
func (b *S3Backend) List(ctx context.Context, prefix string) ([]Object, error) {
	full := b.key(prefix)
	if full != "" && !strings.HasSuffix(full, "/") && prefix != "" {
		full += "/"
	}

	var objects []Object
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(full),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", b.bucket, full, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			o := Object{
				Key:  b.relative(key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				o.ModTime = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}

// Open downloads the object stored under key
func (b *S3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", b.bucket, b.key(key), err)
	}
	return out.Body, nil
}

// Put uploads r to key
func (b *S3Backend) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", b.bucket, b.key(key), err)
	}
	return nil
}

// Delete removes the object stored under key
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", b.bucket, b.key(key), err)
	}
	return nil
}

func (b *S3Backend) key(k string) string {
	k = strings.TrimPrefix(k, "/")
	if b.prefix == "" {
		return k
	}
	if k == "" {
		return b.prefix + "/"
	}
	return b.prefix + "/" + k
}

func (b *S3Backend) relative(k string) string {
	if b.prefix == "" {
		return k
	}
	return strings.TrimPrefix(k, b.prefix+"/")
}
