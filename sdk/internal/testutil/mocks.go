// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides test doubles for the S3 API.
package testutil

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
)

// MockS3Client implements config.S3API. Each operation can be customised
// through its function field and counts its calls.
type MockS3Client struct {
	HeadObjectFunc              func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObjectFunc               func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObjectFunc               func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartFunc              func(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)

	HeadObjectCalls atomic.Int32
	GetObjectCalls  atomic.Int32
	PutObjectCalls  atomic.Int32
}

var _ config.S3API = (*MockS3Client)(nil)

func (m *MockS3Client) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	m.HeadObjectCalls.Add(1)
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *MockS3Client) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	optFns ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	m.GetObjectCalls.Add(1)
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{}, nil
}

func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	m.PutObjectCalls.Add(1)
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{}, nil
}

func (m *MockS3Client) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, params, optFns...)
	}
	return &s3.UploadPartOutput{}, nil
}

func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// Factory returns a client factory bound to m and a counter of how many
// clients were requested.
func (m *MockS3Client) Factory() (func(context.Context, config.S3Config) (*config.S3Client, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context, config.S3Config) (*config.S3Client, error) {
		calls.Add(1)
		return config.NewS3ClientFromAPI(m), nil
	}, &calls
}
