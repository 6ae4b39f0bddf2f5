// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/dataset"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/transfer"
)

const previewRows = 5

// Run executes one batch inference. The returned Result is the upload
// outcome; a failed upload is reported there and not as an error. Errors
// are returned for an aborted download, a probe escalation, a model that
// cannot be resolved and a failed prediction.
func (s *PipelineService) Run(ctx context.Context) (transfer.Result, error) {
	runID := uuid.NewString()
	log := logger.Log.With().Str("run_id", runID).Logger()
	conf := s.conf

	log.Info().
		Str("bucket", conf.InputBucket).
		Str("key", conf.InputKey).
		Str("staging", conf.InputStagingPath).
		Msg("starting batch inference")

	down, err := s.transfer.Download(ctx, transfer.DownloadRequest{
		Bucket:    conf.InputBucket,
		Key:       conf.InputKey,
		LocalPath: conf.InputStagingPath,
	})
	if err != nil {
		return down, err
	}
	if !down.OK() {
		log.Error().Stringer("kind", down.Kind).Msg("Download failed, aborting run")
		return down, fmt.Errorf("%w: %w", ErrDownloadFailed, down.Err)
	}

	input, err := dataset.ReadCSVFile(conf.InputStagingPath)
	if err != nil {
		return transfer.Result{}, err
	}
	log.Info().Int("rows", input.Len()).Msgf("input preview:\n%s", input.Head(previewRows))

	ids, err := input.Column(conf.IDColumn)
	if err != nil {
		return transfer.Result{}, err
	}

	m, err := s.loader.Load(ctx, s.modelRef)
	if err != nil {
		return transfer.Result{}, err
	}

	preds, err := m.Predict(ctx, input)
	if err != nil {
		return transfer.Result{}, fmt.Errorf("error during prediction: %w: %w", ErrPrediction, err)
	}

	out, err := dataset.Predictions(ids, preds, conf.IDColumn, conf.PredictionColumn)
	if err != nil {
		return transfer.Result{}, fmt.Errorf("error during prediction: %w: %w", ErrPrediction, err)
	}
	if err := dataset.WriteCSVFile(conf.OutputStagingPath, out); err != nil {
		return transfer.Result{}, err
	}
	log.Info().Int("rows", out.Len()).Str("staging", conf.OutputStagingPath).Msg("predictions written")

	up := s.transfer.Upload(ctx, transfer.UploadRequest{
		LocalPath: conf.OutputStagingPath,
		Bucket:    conf.OutputBucket,
		Key:       conf.OutputKey,
	})
	if up.OK() {
		log.Info().Str("url", up.URL).Msg("batch inference completed")
	} else {
		log.Warn().Stringer("kind", up.Kind).Msg("batch inference completed, upload failed")
	}
	return up, nil
}
