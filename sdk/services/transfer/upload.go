// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
)

// Upload sends req.LocalPath to req.Bucket. It never returns an error:
// failures are reported through Result.Kind and Result.Err.
//
// A missing local file fails before any client is created. An empty key
// defaults to the file's base name.
func (s *TransferService) Upload(ctx context.Context, req UploadRequest) Result {
	res := Result{
		Op:        opUpload,
		Bucket:    req.Bucket,
		Key:       req.Key,
		LocalPath: req.LocalPath,
	}

	st, err := os.Stat(req.LocalPath)
	if err != nil || !st.Mode().IsRegular() {
		if err == nil {
			err = fmt.Errorf("%s is not a regular file", req.LocalPath)
		}
		return fail(res, KindLocalFileMissing, fmt.Errorf("%w: %w", ErrLocalFileMissing, err))
	}
	res.LocalSize = st.Size()

	if res.Key == "" {
		res.Key = filepath.Base(req.LocalPath)
	}

	client, err := s.newClient(ctx, s.s3)
	if err != nil {
		kind, cause := classify(err)
		return fail(res, kind, cause)
	}

	file, err := os.Open(req.LocalPath)
	if err != nil {
		return fail(res, KindLocalFileMissing, fmt.Errorf("%w: %w", ErrLocalFileMissing, err))
	}
	defer file.Close()

	contentType := ""
	if mt, err := mimetype.DetectFile(req.LocalPath); err == nil {
		contentType = mt.String()
	}

	logger.Log.Info().
		Str("file", req.LocalPath).
		Int64("bytes", res.LocalSize).
		Str("bucket", res.Bucket).
		Str("key", res.Key).
		Msgf("Uploading '%s' (%d bytes) to bucket '%s' as '%s'...", req.LocalPath, res.LocalSize, res.Bucket, res.Key)

	if err := client.UploadFile(ctx, res.Bucket, res.Key, file, contentType, progressHook(opUpload)); err != nil {
		kind, cause := classify(err)
		return fail(res, kind, cause)
	}
	res.RemoteSize = res.LocalSize
	res.URL = s.ObjectURL(res.Bucket, res.Key)

	logger.Log.Info().Str("bucket", res.Bucket).Str("key", res.Key).
		Msgf("Successfully uploaded '%s' to bucket '%s'", res.Key, res.Bucket)
	logger.Log.Info().Str("url", res.URL).Msg("File URL")
	return res
}
