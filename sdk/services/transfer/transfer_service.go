// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
)

const (
	opUpload   = "upload"
	opDownload = "download"
)

// ClientFactory opens a client session for one transfer.
type ClientFactory func(ctx context.Context, conf config.S3Config) (*config.S3Client, error)

type Option func(*TransferService)

// WithClientFactory replaces the S3 client constructor, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(s *TransferService) {
		s.newClient = f
	}
}

// TransferService moves single files between the local disk and an
// S3-compatible bucket. A new client is created for every call.
type TransferService struct {
	s3        config.S3Config
	newClient ClientFactory
}

func NewTransferService(_ context.Context, conf config.Config, opts ...Option) (*TransferService, error) {
	s := &TransferService{
		s3:        conf.S3,
		newClient: config.NewS3Client,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newClient == nil {
		return nil, fmt.Errorf("S3 init failed: nil client factory")
	}
	return s, nil
}

// ObjectURL is the externally reachable address of bucket/key: the virtual
// hosted AWS URL for the default endpoint, endpoint/bucket/key otherwise.
func (s *TransferService) ObjectURL(bucket, key string) string {
	if s.s3.EndpointURL == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.s3.RegionOrDefault(), key)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.s3.EndpointURL, "/"), bucket, key)
}

// fail records the classified failure on res and logs its diagnostic.
func fail(res Result, kind Kind, err error) Result {
	res.Kind = kind
	res.Err = &Error{Op: res.Op, Bucket: res.Bucket, Key: res.Key, Kind: kind, Err: err}

	ev := logger.Log.Error().
		Str("op", res.Op).
		Str("bucket", res.Bucket).
		Str("key", res.Key).
		Stringer("kind", kind)
	if kind == KindTransportOther {
		ev = ev.Err(err)
	}
	ev.Msg(res.Message())
	return res
}

func progressHook(op string) *config.ProgressHook {
	return &config.ProgressHook{
		OnProgress: func(key string, written, total int64) {
			logger.Log.Debug().Str("op", op).Str("key", key).
				Int64("written", written).Int64("total", total).Msg("transfer progress")
		},
		OnDone: func(key string, total int64, took time.Duration) {
			logger.Log.Debug().Str("op", op).Str("key", key).
				Int64("total", total).Dur("took", took).Msg("transfer done")
		},
	}
}
