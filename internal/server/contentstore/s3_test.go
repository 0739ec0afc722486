package contentstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/medchain/medchain-server/internal/common"
)

// fakeS3 keeps objects in a map and lets tests inject faults and tampering.
type fakeS3 struct {
	objects map[string][]byte

	putErr  error
	getErr  error
	tamper  func(key string, data []byte) []byte
	putCnt  int
	headCnt int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCnt++
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	if f.tamper != nil {
		data = f.tamper(*in.Key, data)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.headCnt++
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{}, nil
}

func newS3StoreWithFake(f *fakeS3) *S3Store {
	return &S3Store{client: f, bucket: "records"}
}

func TestS3Store_PutGetRoundTrip(t *testing.T) {
	fake := newFakeS3()
	store := newS3StoreWithFake(fake)
	ctx := context.Background()

	payload := []byte("report-v1")
	addr, hash, err := store.Put(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, HashBytes(payload), hash)

	got, err := store.Get(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestS3Store_PutSkipsUploadWhenBlobExists(t *testing.T) {
	fake := newFakeS3()
	store := newS3StoreWithFake(fake)
	ctx := context.Background()

	_, _, err := store.Put(ctx, []byte("dup"))
	require.NoError(t, err)
	require.Equal(t, 1, fake.putCnt)

	_, _, err = store.Put(ctx, []byte("dup"))
	require.NoError(t, err)
	require.Equal(t, 1, fake.putCnt, "second put of identical bytes must not re-upload")
}

func TestS3Store_PutUnreachableIsStorageFault(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("connection refused")
	store := newS3StoreWithFake(fake)

	_, _, err := store.Put(context.Background(), []byte("x"))
	require.ErrorIs(t, err, common.ErrStorageFault)
}

func TestS3Store_PutReadBackMismatchIsStorageFault(t *testing.T) {
	fake := newFakeS3()
	fake.tamper = func(key string, data []byte) []byte {
		return append([]byte("garbage-"), data...)
	}
	store := newS3StoreWithFake(fake)

	_, _, err := store.Put(context.Background(), []byte("x"))
	require.ErrorIs(t, err, common.ErrStorageFault)
}

func TestS3Store_GetMissingIsStorageFault(t *testing.T) {
	store := newS3StoreWithFake(newFakeS3())

	_, err := store.Get(context.Background(), "bafy-missing")
	require.ErrorIs(t, err, common.ErrStorageFault)
}
