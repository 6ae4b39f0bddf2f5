// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/model"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/transfer"
)

var (
	// ErrDownloadFailed aborts a run before any prediction or upload.
	ErrDownloadFailed = errors.New("input download failed")
	// ErrPrediction wraps every failure of the model while scoring.
	ErrPrediction = errors.New("prediction failed")
)

// Transferer moves the staging files. *transfer.TransferService satisfies it.
type Transferer interface {
	Download(ctx context.Context, req transfer.DownloadRequest) (transfer.Result, error)
	Upload(ctx context.Context, req transfer.UploadRequest) transfer.Result
}

// ModelLoader resolves a model reference into something that can predict.
type ModelLoader interface {
	Load(ctx context.Context, ref string) (model.Predictor, error)
}

// LoaderFunc adapts a function to ModelLoader.
type LoaderFunc func(ctx context.Context, ref string) (model.Predictor, error)

func (f LoaderFunc) Load(ctx context.Context, ref string) (model.Predictor, error) {
	return f(ctx, ref)
}

type Option func(*PipelineService)

func WithTransferer(t Transferer) Option {
	return func(s *PipelineService) {
		s.transfer = t
	}
}

func WithModelLoader(l ModelLoader) Option {
	return func(s *PipelineService) {
		s.loader = l
	}
}

// PipelineService runs download, predict and upload once per Run call.
type PipelineService struct {
	transfer Transferer
	loader   ModelLoader
	conf     config.PipelineConfig
	modelRef string
}

// NewPipelineService wires the transfer and model services from conf unless
// they are supplied as options.
func NewPipelineService(ctx context.Context, conf config.Config, opts ...Option) (*PipelineService, error) {
	s := &PipelineService{
		conf:     conf.Pipeline.WithDefaults(),
		modelRef: conf.Tracking.ModelReference,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.transfer == nil {
		ts, err := transfer.NewTransferService(ctx, conf)
		if err != nil {
			return nil, err
		}
		s.transfer = ts
	}
	if s.loader == nil {
		ms, err := model.NewModelService(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("model service init failed: %w", err)
		}
		s.loader = LoaderFunc(func(ctx context.Context, ref string) (model.Predictor, error) {
			return ms.Load(ctx, ref)
		})
	}
	return s, nil
}

// Config is the effective configuration, defaults applied.
func (s *PipelineService) Config() config.PipelineConfig {
	return s.conf
}
