package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/medchain/medchain-server/internal/common"
)

// s3API is the subset of the S3 client used by the store, kept narrow so
// tests can substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config carries the settings for an S3-compatible backend (AWS or MinIO).
type S3Config struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
	Timeout      time.Duration
}

// S3Store stores blobs in an S3-compatible bucket under keys derived from the
// content address, with a read-back verification on every write.
type S3Store struct {
	client  s3API
	bucket  string
	timeout time.Duration
}

// NewS3Store builds an S3-backed content store from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.User,
			cfg.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, timeout: cfg.Timeout}, nil
}

func (s *S3Store) key(address string) string {
	return "records/" + address
}

func (s *S3Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Put uploads data under its content-derived key, skipping the upload when a
// blob with that key already exists, and verifies the write by reading the
// object back and comparing digests. Any transport failure or a verification
// mismatch surfaces as common.ErrStorageFault.
func (s *S3Store) Put(ctx context.Context, data []byte) (string, string, error) {
	address, err := AddressFor(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrStorageFault, err)
	}
	hash := HashBytes(data)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.key(address)

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err == nil {
		// Identical bytes already stored; one blob, another metadata row.
		return address, hash, nil
	}
	// NotFound means first upload of these bytes. Any other head failure
	// also falls through: the put below decides whether the store is
	// actually reachable.

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: put %s: %v", common.ErrStorageFault, key, err)
	}

	// Read-back check: a write that cannot be re-read with the same digest
	// never becomes a record.
	stored, err := s.get(ctx, key)
	if err != nil {
		return "", "", err
	}
	if HashBytes(stored) != hash {
		return "", "", fmt.Errorf("%w: write verification failed for %s", common.ErrStorageFault, key)
	}

	return address, hash, nil
}

// Get returns the bytes stored under address.
func (s *S3Store) Get(ctx context.Context, address string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.get(ctx, s.key(address))
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrStorageFault, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorageFault, key, err)
	}
	return data, nil
}
