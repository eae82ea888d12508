package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Config struct {
	// Endpoint is the S3-compatible endpoint, e.g. https://<ref>.supabase.co/storage/v1/s3.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// PublicBaseURL prefixes public object URLs, e.g. https://<ref>.supabase.co/storage/v1/object/public.
	PublicBaseURL string
}

// S3 stores objects in an S3-compatible service (Supabase Storage).
type S3 struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	baseURL  string
}

func NewS3(cfg S3Config) (*S3, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(cfg.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimSuffix(strings.TrimRight(cfg.Endpoint, "/"), "/s3") + "/object/public"
	}
	return &S3{client: s3.New(sess), uploader: s3manager.NewUploader(sess), baseURL: base}, nil
}

func (s *S3) PublicURL(bucket, path string) string {
	return s.baseURL + "/" + bucket + "/" + path
}

func (s *S3) exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var aerr awserr.RequestFailure
	if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
		return false, nil
	}
	return false, err
}

func (s *S3) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string, upsert bool) (string, error) {
	key, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	if !upsert {
		ok, err := s.exists(ctx, bucket, key)
		if err != nil {
			return "", fmt.Errorf("check %s/%s: %w", bucket, key, err)
		}
		if ok {
			return "", fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectExists)
		}
	}
	in := &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, in); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return s.PublicURL(bucket, key), nil
}

func (s *S3) Remove(ctx context.Context, bucket string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	objs := make([]*s3.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		key, err := cleanPath(p)
		if err != nil {
			return err
		}
		objs = append(objs, &s3.ObjectIdentifier{Key: aws.String(key)})
	}
	out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &s3.Delete{Objects: objs, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("remove from %s: %w", bucket, err)
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("remove %s/%s: %s", bucket, aws.StringValue(e.Key), aws.StringValue(e.Message))
	}
	return nil
}
