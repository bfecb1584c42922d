package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/ports"
)

type object struct {
	data    []byte
	etag    string
	modTime time.Time
}

type fakeAPI struct {
	objects map[string]object
	heads   int
	gets    int
}

func (f *fakeAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	o, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(o.data))),
		ETag:          aws.String(o.etag),
		LastModified:  aws.Time(o.modTime),
	}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	o, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(o.data))}, nil
}

type localLocator struct{ stats int }

func (l *localLocator) Stat(ctx context.Context, p string) (ports.Signature, error) {
	l.stats++
	return ports.Signature{Size: 1}, nil
}

func (l *localLocator) Localize(ctx context.Context, p string) (string, error) {
	return p, nil
}

func newStore(t *testing.T) (*Store, *fakeAPI, *localLocator) {
	t.Helper()
	api := &fakeAPI{objects: map[string]object{
		"media/shots/clip.mov": {data: []byte("movie bytes"), etag: `"abc"`, modTime: time.Unix(1700000000, 0)},
	}}
	local := &localLocator{}
	s, err := NewWithAPI(api, t.TempDir(), local)
	require.NoError(t, err)
	return s, api, local
}

func TestParsePath(t *testing.T) {
	bucket, key, err := ParsePath("s3://media/shots/clip.mov")
	require.NoError(t, err)
	assert.Equal(t, "media", bucket)
	assert.Equal(t, "shots/clip.mov", key)

	_, _, err = ParsePath("s3://media")
	assert.Error(t, err)
	_, _, err = ParsePath("/tmp/clip.mov")
	assert.Error(t, err)
}

func TestStat(t *testing.T) {
	s, _, _ := newStore(t)

	sig, err := s.Stat(context.Background(), "s3://media/shots/clip.mov")
	require.NoError(t, err)
	assert.Equal(t, int64(11), sig.Size)
	assert.Equal(t, `"abc"`, sig.ETag)

	_, err = s.Stat(context.Background(), "s3://media/shots/missing.mov")
	assert.ErrorIs(t, err, ports.ErrMediaNotFound)
}

func TestLocalDelegation(t *testing.T) {
	s, api, local := newStore(t)

	_, err := s.Stat(context.Background(), "/tmp/clip.mov")
	require.NoError(t, err)
	got, err := s.Localize(context.Background(), "/tmp/clip.mov")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/clip.mov", got)
	assert.Equal(t, 1, local.stats)
	assert.Zero(t, api.heads)
}

func TestLocalizeDownloadsOnce(t *testing.T) {
	s, api, _ := newStore(t)
	ctx := context.Background()

	first, err := s.Localize(ctx, "s3://media/shots/clip.mov")
	require.NoError(t, err)
	assert.Equal(t, ".mov", filepath.Ext(first))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "movie bytes", string(data))

	second, err := s.Localize(ctx, "s3://media/shots/clip.mov")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.gets)
}

func TestLocalizeNewVersion(t *testing.T) {
	s, api, _ := newStore(t)
	ctx := context.Background()

	first, err := s.Localize(ctx, "s3://media/shots/clip.mov")
	require.NoError(t, err)

	api.objects["media/shots/clip.mov"] = object{data: []byte("new take"), etag: `"def"`, modTime: time.Unix(1700000100, 0)}
	second, err := s.Localize(ctx, "s3://media/shots/clip.mov")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, api.gets)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("s3://a/b", &types.NoSuchBucket{}), ports.ErrMediaNotFound)
	assert.ErrorIs(t, classify("s3://a/b", errors.New("boom")), ports.ErrMediaUnreadable)
	assert.ErrorIs(t, classify("s3://a/b", context.Canceled), context.Canceled)
}

func TestNewWithStaticCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		CacheDir:        t.TempDir(),
	}, &localLocator{})
	require.NoError(t, err)
	assert.NotNil(t, s.api)
}
