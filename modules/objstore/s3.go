package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/antgroup/gitsync/modules/streamio"
)

// BucketConfig names the one bucket this adapter talks to and how to
// reach it. Cloudflare R2 exposes an S3-compatible API at a per-account
// endpoint, so everything past the endpoint URL and credentials is
// ordinary aws-sdk-go-v2/service/s3.
type BucketConfig struct {
	Endpoint        string `toml:"endpoint,omitempty"`
	Region          string `toml:"region,omitempty"`
	Bucket          string `toml:"bucket,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	AccessKeySecret string `toml:"access_key_secret,omitempty"`
}

// S3Adapter implements Adapter against an S3-compatible bucket.
type S3Adapter struct {
	client *s3.Client
	bucket string
}

// NewS3Adapter builds an adapter from a BucketConfig. Region defaults to
// "auto", which is what R2 expects for its single virtual region.
func NewS3Adapter(ctx context.Context, bc BucketConfig) (*S3Adapter, error) {
	region := bc.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			bc.AccessKeyID, bc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("objstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if bc.Endpoint != "" {
			o.BaseEndpoint = aws.String(bc.Endpoint)
		}
		// R2 does not support the virtual-hosted addressing style.
		o.UsePathStyle = true
	})

	return &S3Adapter{client: client, bucket: bc.Bucket}, nil
}

func (a *S3Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("objstore: get %s: %w", key, err)
	}
	defer out.Body.Close()

	buf := streamio.GetBytesBuffer()
	defer streamio.PutBytesBuffer(buf)
	if _, err := streamio.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("objstore: read %s: %w", key, err)
	}
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return data, nil
}

func (a *S3Adapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("objstore: head %s: %w", key, err)
	}
	return true, nil
}

func (a *S3Adapter) Put(ctx context.Context, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("objstore: put %s: %w", key, err)
	}
	return nil
}

// Copy prefers S3's server-side CopyObject; both the base and destination
// repositories live in the same bucket in this system, so this is the
// common and fast path. It falls back to get+put only when CopyObject
// itself fails (for example because the source object exceeds the
// single-request copy size limit).
func (a *S3Adapter) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(a.bucket + "/" + srcKey),
	})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return ErrNotFound
	}

	data, getErr := a.Get(ctx, srcKey)
	if getErr != nil {
		return fmt.Errorf("objstore: copy %s to %s: server-side copy failed (%v), fallback get failed: %w", srcKey, dstKey, err, getErr)
	}
	if putErr := a.Put(ctx, dstKey, data); putErr != nil {
		return fmt.Errorf("objstore: copy %s to %s: server-side copy failed (%v), fallback put failed: %w", srcKey, dstKey, err, putErr)
	}
	return nil
}

func (a *S3Adapter) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(limit)),
	}
	if cursor != "" {
		in.ContinuationToken = aws.String(cursor)
	}

	out, err := a.client.ListObjectsV2(ctx, in)
	if err != nil {
		return Page{}, fmt.Errorf("objstore: list %s: %w", prefix, err)
	}

	page := Page{Keys: make([]string, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(out.IsTruncated) {
		page.Cursor = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
