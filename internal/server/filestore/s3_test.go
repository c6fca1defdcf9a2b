package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	err     error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(d))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func TestS3Backend_PutGetListDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["other/ignored.txt"] = []byte("x")
	fake.objects["claims/nested/deep.txt"] = []byte("x")
	b := NewS3BackendFromClient(fake, "warranty", "claims/")

	require.NoError(t, b.Put(ctx, "a.txt", []byte("aaa")))
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "warranty", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "claims/a.txt", aws.ToString(fake.puts[0].Key))
	assert.Equal(t, "*", aws.ToString(fake.puts[0].IfNoneMatch))

	got, err := b.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), got)

	files, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, int64(3), files[0].Size)

	require.NoError(t, b.Delete(ctx, "a.txt"))
	assert.ErrorIs(t, b.Delete(ctx, "a.txt"), common.ErrorNotFound)
	_, err = b.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Backend_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.err = errors.New("endpoint unreachable")
	b := NewS3BackendFromClient(fake, "warranty", "")

	assert.ErrorContains(t, b.Put(ctx, "a.txt", nil), "s3 put")
	_, err := b.Get(ctx, "a.txt")
	assert.ErrorContains(t, err, "s3 get")
	_, err = b.List(ctx)
	assert.ErrorContains(t, err, "s3 list")
	assert.ErrorContains(t, b.Delete(ctx, "a.txt"), "s3 head")

	assert.ErrorIs(t, b.Put(ctx, "../a.txt", nil), common.ErrInvalidName)
}

func TestNewS3Backend_UsesConfiguredEndpoint(t *testing.T) {
	origNew := newS3ClientFromConfig
	t.Cleanup(func() { newS3ClientFromConfig = origNew })

	var opts s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		assert.Equal(t, "eu-west-1", cfg.Region)
		return fake
	}

	b, err := NewS3Backend(context.Background(), S3Options{
		AccessKey: "ak", SecretKey: "sk", Bucket: "warranty", Region: "eu-west-1",
		BaseEndpoint: "http://minio:9000", Prefix: "claims/",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Same(t, fake, b.client)
}

func TestS3Store_SealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, NewS3BackendFromClient(newFakeS3(), "warranty", "claims/"))

	name, err := s.Save(ctx, "report.docx", []byte("payload"))
	require.NoError(t, err)
	name2, err := s.Save(ctx, "report.docx", []byte("payload2"))
	require.NoError(t, err)
	assert.Equal(t, "report(1).docx", name2)

	got, err := s.Load(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
