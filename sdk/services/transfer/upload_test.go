// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/internal/testutil"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/transfer"
)

func newService(t *testing.T, s3conf config.S3Config, mock *testutil.MockS3Client) (*transfer.TransferService, func() int32) {
	t.Helper()
	factory, calls := mock.Factory()
	svc, err := transfer.NewTransferService(context.Background(), config.Config{S3: s3conf}, transfer.WithClientFactory(factory))
	require.NoError(t, err)
	return svc, calls.Load
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestUpload_MissingLocalFile(t *testing.T) {
	mock := &testutil.MockS3Client{}
	svc, clients := newService(t, config.S3Config{}, mock)

	res := svc.Upload(context.Background(), transfer.UploadRequest{
		LocalPath: filepath.Join(t.TempDir(), "missing.csv"),
		Bucket:    "bucket",
	})

	assert.False(t, res.OK())
	assert.Equal(t, transfer.KindLocalFileMissing, res.Kind)
	assert.ErrorIs(t, res.Err, transfer.ErrLocalFileMissing)
	assert.Contains(t, res.Message(), "not found")
	assert.Zero(t, clients(), "no client must be created")
	assert.Zero(t, mock.PutObjectCalls.Load())
}

func TestUpload_DirectoryIsNotAFile(t *testing.T) {
	mock := &testutil.MockS3Client{}
	svc, clients := newService(t, config.S3Config{}, mock)

	res := svc.Upload(context.Background(), transfer.UploadRequest{LocalPath: t.TempDir(), Bucket: "bucket"})

	assert.Equal(t, transfer.KindLocalFileMissing, res.Kind)
	assert.Zero(t, clients())
}

func TestUpload_DefaultKeyAndURL(t *testing.T) {
	tests := []struct {
		name    string
		s3conf  config.S3Config
		key     string
		wantKey string
		wantURL string
	}{
		{
			name:    "default endpoint uses file name",
			s3conf:  config.S3Config{},
			wantKey: "input.csv",
			wantURL: "https://bucket.s3.us-east-1.amazonaws.com/input.csv",
		},
		{
			name:    "default endpoint honours region",
			s3conf:  config.S3Config{Region: "eu-west-1"},
			key:     "data/predictions.csv",
			wantKey: "data/predictions.csv",
			wantURL: "https://bucket.s3.eu-west-1.amazonaws.com/data/predictions.csv",
		},
		{
			name:    "custom endpoint",
			s3conf:  config.S3Config{EndpointURL: "http://minio:9000/"},
			wantKey: "input.csv",
			wantURL: "http://minio:9000/bucket/input.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "input.csv", "PassengerId,Feature1\n1,0.5\n")

			var gotKey, gotBody string
			mock := &testutil.MockS3Client{
				PutObjectFunc: func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
					gotKey = aws.ToString(in.Key)
					b, err := io.ReadAll(in.Body)
					require.NoError(t, err)
					gotBody = string(b)
					assert.Equal(t, "bucket", aws.ToString(in.Bucket))
					assert.Equal(t, int64(len(b)), aws.ToInt64(in.ContentLength))
					return &s3.PutObjectOutput{}, nil
				},
			}
			svc, clients := newService(t, tt.s3conf, mock)

			res := svc.Upload(context.Background(), transfer.UploadRequest{LocalPath: path, Bucket: "bucket", Key: tt.key})

			require.True(t, res.OK(), res.Message())
			assert.Equal(t, tt.wantKey, gotKey)
			assert.Equal(t, tt.wantKey, res.Key)
			assert.Equal(t, tt.wantURL, res.URL)
			assert.Equal(t, "PassengerId,Feature1\n1,0.5\n", gotBody)
			assert.Equal(t, int32(1), clients())
			assert.Equal(t, int32(1), mock.PutObjectCalls.Load())
		})
	}
}

func TestUpload_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind transfer.Kind
		wantIs   error
		wantMsg  []string
	}{
		{
			name:     "bucket does not exist",
			err:      &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"},
			wantKind: transfer.KindBucketNotFound,
			wantIs:   transfer.ErrBucketNotFound,
			wantMsg:  []string{"Bucket 'does-not-exist' does not exist."},
		},
		{
			name:     "access denied",
			err:      &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"},
			wantKind: transfer.KindAccessDenied,
			wantIs:   transfer.ErrAccessDenied,
			wantMsg:  []string{"Access denied", "does-not-exist"},
		},
		{
			name:     "credentials missing",
			err:      fmt.Errorf("failed to sign request: %w", fmt.Errorf("%w: no EC2 IMDS role found", config.ErrNoCredentials)),
			wantKind: transfer.KindCredentialsMissing,
			wantIs:   transfer.ErrCredentialsMissing,
			wantMsg: []string{
				"AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY",
				"~/.aws/credentials",
				"IAM roles",
			},
		},
		{
			name:     "other service error",
			err:      &smithy.GenericAPIError{Code: "SlowDown", Message: "Please reduce your request rate"},
			wantKind: transfer.KindTransportOther,
			wantMsg:  []string{"SlowDown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "predictions.csv", "PassengerId,predictions\n1,0\n")
			mock := &testutil.MockS3Client{
				PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
					return nil, tt.err
				},
			}
			svc, _ := newService(t, config.S3Config{}, mock)

			res := svc.Upload(context.Background(), transfer.UploadRequest{
				LocalPath: path,
				Bucket:    "does-not-exist",
				Key:       "data/predictions.csv",
			})

			assert.False(t, res.OK())
			assert.Equal(t, tt.wantKind, res.Kind)
			if tt.wantIs != nil {
				assert.ErrorIs(t, res.Err, tt.wantIs)
			}
			var terr *transfer.Error
			require.True(t, errors.As(res.Err, &terr))
			assert.Equal(t, tt.wantKind, terr.Kind)
			for _, m := range tt.wantMsg {
				assert.Contains(t, res.Message(), m)
			}
			assert.Equal(t, int32(1), mock.PutObjectCalls.Load(), "exactly one attempt")
		})
	}
}

func TestUpload_ClientFactoryFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.csv", "a\n")
	factory := func(context.Context, config.S3Config) (*config.S3Client, error) {
		return nil, errors.New("failed to load AWS config: boom")
	}
	svc, err := transfer.NewTransferService(context.Background(), config.Config{}, transfer.WithClientFactory(factory))
	require.NoError(t, err)

	res := svc.Upload(context.Background(), transfer.UploadRequest{LocalPath: path, Bucket: "bucket"})

	assert.Equal(t, transfer.KindTransportOther, res.Kind)
	assert.Contains(t, res.Message(), "boom")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "BucketNotFound", transfer.KindBucketNotFound.String())
	assert.Equal(t, "LocalFileMissing", transfer.KindLocalFileMissing.String())
	assert.Equal(t, "Kind(42)", transfer.Kind(42).String())
}
