package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client S3Source 依赖的 S3 接口，*s3.Client 满足该接口
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source 从对象存储镜像读取资源 (S3、MinIO、R2 等)
type S3Source struct {
	client S3Client
	bucket string
	prefix string
}

// S3Options 对象存储参数
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // 兼容 S3 的服务地址，为空使用 AWS

	// AccessKeyID 为空时匿名访问
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Source 使用已配置好的客户端创建来源
func NewS3Source(client S3Client, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3SourceFromOptions 根据参数构建 s3.Client
func NewS3SourceFromOptions(opts S3Options) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, errors.New("未指定 bucket")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	s3Opts := s3.Options{Region: region}
	if opts.AccessKeyID != "" {
		s3Opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     opts.AccessKeyID,
				SecretAccessKey: opts.SecretAccessKey,
				Source:          "kittentts",
			}, nil
		})
	} else {
		s3Opts.Credentials = aws.AnonymousCredentials{}
	}
	if opts.Endpoint != "" {
		s3Opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3Opts.UsePathStyle = true
	}
	return NewS3Source(s3.New(s3Opts), opts.Bucket, opts.Prefix), nil
}

func (s *S3Source) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Source) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *S3Source) Fetch(ctx context.Context, name string, w io.Writer) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, fmt.Errorf("对象不存在: %s", s.key(name))
		}
		return 0, err
	}
	defer out.Body.Close()
	return io.Copy(w, out.Body)
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
