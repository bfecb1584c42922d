// Package s3store locates movies stored in S3 (or an S3 compatible service)
// under s3://bucket/key paths and downloads them into a local cache so the
// media adapters can open them.
package s3store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/user/moviereader/pkg/ports"
)

// Scheme prefixes remote paths handled by the store.
const Scheme = "s3://"

// Config holds the configuration for S3 access.
type Config struct {
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	CacheDir        string // Where downloaded objects are kept
}

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements ports.Locator. Paths without the s3:// scheme are handed
// to the fallback locator.
type Store struct {
	api      ObjectAPI
	cacheDir string
	fallback ports.Locator
}

var _ ports.Locator = (*Store)(nil)

// New creates a Store backed by a real S3 client.
func New(ctx context.Context, cfg Config, fallback ports.Locator) (*Store, error) {
	var configOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		configOpts = append(configOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewWithAPI(s3.NewFromConfig(awsCfg, clientOpts...), cfg.CacheDir, fallback)
}

// NewWithAPI creates a Store over an existing client.
func NewWithAPI(api ObjectAPI, cacheDir string, fallback ports.Locator) (*Store, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "moviereader-s3")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{api: api, cacheDir: cacheDir, fallback: fallback}, nil
}

// IsRemote reports whether p names an S3 object.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, Scheme)
}

// ParsePath splits s3://bucket/key into its parts.
func ParsePath(p string) (bucket, key string, err error) {
	if !IsRemote(p) {
		return "", "", fmt.Errorf("not an s3 path: %s", p)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(p, Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 path: %s", p)
	}
	return bucket, key, nil
}

// Stat returns the object's signature from a HEAD request.
func (s *Store) Stat(ctx context.Context, p string) (ports.Signature, error) {
	if !IsRemote(p) {
		return s.fallback.Stat(ctx, p)
	}
	bucket, key, err := ParsePath(p)
	if err != nil {
		return ports.Signature{}, fmt.Errorf("%w: %v", ports.ErrMediaNotFound, err)
	}

	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ports.Signature{}, classify(p, err)
	}
	return ports.SignatureOf(aws.ToTime(out.LastModified), aws.ToInt64(out.ContentLength), aws.ToString(out.ETag)), nil
}

// Localize downloads the object unless a copy of the same version is
// already cached and returns the local path.
func (s *Store) Localize(ctx context.Context, p string) (string, error) {
	if !IsRemote(p) {
		return s.fallback.Localize(ctx, p)
	}
	sig, err := s.Stat(ctx, p)
	if err != nil {
		return "", err
	}

	local := s.cachePath(p, sig)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	bucket, key, _ := ParsePath(p)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", classify(p, err)
	}
	defer out.Body.Close()

	tmp := filepath.Join(s.cacheDir, ".download-"+uuid.New().String())
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("%w: download %s: %v", ports.ErrMediaUnreadable, p, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close download file: %w", err)
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("store download: %w", err)
	}
	return local, nil
}

// cachePath keeps the object's extension so format sniffing still works.
func (s *Store) cachePath(p string, sig ports.Signature) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s", p, sig.ModTime, sig.Size, sig.ETag)))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:16])+path.Ext(p))
}

func classify(p string, err error) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	switch {
	case errors.As(err, &nf), errors.As(err, &nsk), errors.As(err, &nsb):
		return fmt.Errorf("%w: %s", ports.ErrMediaNotFound, p)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrMediaUnreadable, p, err)
}
