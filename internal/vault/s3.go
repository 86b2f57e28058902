package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"dpc-go/internal/dpc"
)

// Environment variables read by NewS3Vault. When the key pair is unset the
// default AWS credential chain is used.
const (
	EnvS3AccessKeyID     = "DPC_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "DPC_S3_SECRET_ACCESS_KEY"
	EnvS3Endpoint        = "DPC_S3_ENDPOINT" // S3-compatible endpoint; enables path-style addressing
)

// s3Client is the subset of *s3.Client used by S3Vault.
type s3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores snapshots in an S3 bucket:
//
//	<prefix>/snapshots/<hostID>.db
//	<prefix>/snapshots/<hostID>.version
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by bucket, using the default AWS
// configuration chain.
func NewS3Vault(ctx context.Context, name, bucket, prefix, region string) (*S3Vault, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if id, secret := os.Getenv(EnvS3AccessKeyID), os.Getenv(EnvS3SecretAccessKey); id != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	endpoint := os.Getenv(EnvS3Endpoint)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Vault(name, bucket, prefix, client), nil
}

func newS3Vault(name, bucket, prefix string, client s3Client) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) key(hostID, ext string) string {
	return path.Join(v.prefix, "snapshots", hostID+ext)
}

// PutSnapshot uploads the snapshot, then its version.
func (v *S3Vault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	ctx := context.Background()

	body := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(hostID, ".db")),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	if body.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, body.n)
	}

	versionData := strconv.FormatInt(version, 10)
	_, err = v.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(v.key(hostID, ".version")),
		Body:          strings.NewReader(versionData),
		ContentLength: aws.Int64(int64(len(versionData))),
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot version: %w", err)
	}
	return nil
}

// GetSnapshotVersion returns the stored version, or 0 if there is none.
func (v *S3Vault) GetSnapshotVersion(hostID string) (int64, error) {
	var buf strings.Builder
	if err := v.get(v.key(hostID, ".version"), &buf); err != nil {
		if errors.Is(err, dpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(buf.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetSnapshot downloads the snapshot for a host into w.
func (v *S3Vault) GetSnapshot(hostID string, w io.Writer) error {
	if err := v.get(v.key(hostID, ".db"), w); err != nil {
		return fmt.Errorf("snapshot for host %s: %w", hostID, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) get(key string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%s: %w", key, dpc.ErrNotFound)
		}
		return fmt.Errorf("getting %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Vault implements dpc.Vault interface
var _ dpc.Vault = (*S3Vault)(nil)
