// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/dataset"
)

// Predictor scores a whole table at once and returns one value per row,
// in row order.
type Predictor interface {
	Predict(ctx context.Context, t *dataset.Table) ([]string, error)
}

// Handle is a resolved model. It is obtained once per run and used for a
// single batch prediction.
type Handle struct {
	Reference string `json:"reference"`
	Name      string `json:"name,omitempty"`
	Version   string `json:"version,omitempty"`
	Stage     string `json:"stage,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Source    string `json:"source"`
	Status    string `json:"status,omitempty"`

	serving config.RESTCore
}

var _ Predictor = (*Handle)(nil)

// tracking server payloads (REST API 2.0)

type runInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
	ArtifactURI  string `json:"artifact_uri"`
}

type runResponse struct {
	Run struct {
		Info runInfo `json:"info"`
	} `json:"run"`
}

type modelVersion struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Source       string `json:"source"`
	RunID        string `json:"run_id"`
	CurrentStage string `json:"current_stage"`
	Status       string `json:"status"`
}

type modelVersionResponse struct {
	ModelVersion modelVersion `json:"model_version"`
}

type latestVersionsRequest struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages,omitempty"`
}

type latestVersionsResponse struct {
	ModelVersions []modelVersion `json:"model_versions"`
}

// scoring server payload

type dataframeSplit struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type invocationRequest struct {
	DataframeSplit dataframeSplit `json:"dataframe_split"`
}
