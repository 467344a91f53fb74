package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	headErr error
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func testStore(f *fakeS3) *Store {
	return &Store{client: f, bucket: "weather-exports", region: "us-east-1"}
}

func TestWriteObject(t *testing.T) {
	f := newFakeS3()
	s := testStore(f)

	require.NoError(t, s.WriteObject(context.Background(), "joined_weather_data_17122024094000.csv", []byte("a,b\n")))

	assert.Equal(t, []byte("a,b\n"), f.objects["weather-exports/joined_weather_data_17122024094000.csv"])
	require.Len(t, f.puts, 1)
	assert.Equal(t, "text/csv", aws.ToString(f.puts[0].ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(f.puts[0].ContentLength))
}

func TestWriteObject_Error(t *testing.T) {
	f := newFakeS3()
	f.putErr = errors.New("AccessDenied")

	err := testStore(f).WriteObject(context.Background(), "k.csv", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://weather-exports/k.csv")
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestOpen(t *testing.T) {
	f := newFakeS3()
	f.objects["weather-exports/us_city.csv"] = []byte("city,state,population,land_area_sq_mile\n")
	s := testStore(f)

	rc, err := s.Open(context.Background(), "us_city.csv")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "city,state,population,land_area_sq_mile\n", string(got))

	_, err = s.Open(context.Background(), "missing.csv")
	require.Error(t, err)
}

func TestCheckReadiness(t *testing.T) {
	f := newFakeS3()
	s := testStore(f)
	assert.NoError(t, s.CheckReadiness(context.Background()))

	f.headErr = errors.New("Forbidden")
	assert.ErrorContains(t, s.CheckReadiness(context.Background()), "weather-exports")
}

func TestAccessors(t *testing.T) {
	s := testStore(newFakeS3())
	assert.Equal(t, "weather-exports", s.Bucket())
	assert.Equal(t, "us-east-1", s.Region())
}
