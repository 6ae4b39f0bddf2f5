// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
)

// Download fetches req.Bucket/req.Key into req.LocalPath.
//
// The object is probed first; a missing object fails without any data
// transfer. Classified failures come back in the Result with a nil error.
// A probe failure that is neither "not found" nor missing credentials is
// returned as an error wrapping ErrProbe.
func (s *TransferService) Download(ctx context.Context, req DownloadRequest) (Result, error) {
	if req.Key == "" {
		return Result{Op: opDownload, Bucket: req.Bucket}, errors.New("object key is mandatory")
	}

	res := Result{
		Op:        opDownload,
		Bucket:    req.Bucket,
		Key:       req.Key,
		LocalPath: req.LocalPath,
	}
	if res.LocalPath == "" {
		res.LocalPath = filepath.Base(req.Key)
	}

	client, err := s.newClient(ctx, s.s3)
	if err != nil {
		kind, cause := classify(err)
		return fail(res, kind, cause), nil
	}

	size, err := client.HeadObject(ctx, res.Bucket, res.Key)
	if err != nil {
		switch {
		case errors.Is(err, config.ErrNoCredentials):
			return fail(res, KindCredentialsMissing, err), nil
		case isNotFound(err):
			return fail(res, KindObjectNotFound, fmt.Errorf("%w: %w", ErrObjectNotFound, err)), nil
		}
		res.Kind = KindTransportOther
		res.Err = &Error{Op: res.Op, Bucket: res.Bucket, Key: res.Key, Kind: res.Kind, Err: err}
		return res, fmt.Errorf("%w: %w", ErrProbe, res.Err)
	}
	res.RemoteSize = size

	logger.Log.Info().
		Str("bucket", res.Bucket).
		Str("key", res.Key).
		Int64("bytes", size).
		Msgf("Downloading '%s' (%d bytes) from bucket '%s' to '%s'...", res.Key, size, res.Bucket, res.LocalPath)

	if err := os.MkdirAll(filepath.Dir(res.LocalPath), 0o755); err != nil {
		return fail(res, KindTransportOther, fmt.Errorf("failed to create local directory: %w", err)), nil
	}

	if _, err := client.DownloadFile(ctx, res.Bucket, res.Key, res.LocalPath, progressHook(opDownload)); err != nil {
		kind, cause := classify(err)
		return fail(res, kind, cause), nil
	}

	logger.Log.Info().Msgf("Successfully downloaded '%s' to '%s'", res.Key, res.LocalPath)

	if st, err := os.Stat(res.LocalPath); err == nil && st.Mode().IsRegular() {
		res.LocalSize = st.Size()
		logger.Log.Info().Int64("bytes", res.LocalSize).Msg("Local file size")
		if res.LocalSize != res.RemoteSize {
			logger.Log.Warn().
				Int64("remote", res.RemoteSize).
				Int64("local", res.LocalSize).
				Msg("local size differs from remote size")
		}
	}
	return res, nil
}
