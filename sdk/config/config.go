// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

const (
	// DefaultRegion is used when no region is configured.
	DefaultRegion = "us-east-1"

	DefaultInputStagingPath  = "/tmp/test.csv"
	DefaultOutputStagingPath = "/tmp/predictions.csv"
	DefaultOutputKey         = "data/predictions.csv"
	DefaultIDColumn          = "PassengerId"
	DefaultPredictionColumn  = "predictions"
)

// Config is everything the SDK needs for one run (no viper/INI here).
type Config struct {
	Tracking TrackingConfig
	S3       S3Config
	Pipeline PipelineConfig
}

// TrackingConfig points at the model registry and the scoring server.
// ServingURL falls back to TrackingURI when empty.
type TrackingConfig struct {
	TrackingURI    string
	ServingURL     string
	ModelReference string
	Token          string
	Username       string
	Password       string
}

// S3Config holds the connection settings for an S3-compatible store.
// Empty AccessKey/SecretKey means ambient credential resolution.
type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
}

// PipelineConfig names the input object, the output object and the local
// staging files of a run. See WithDefaults for the fallbacks.
type PipelineConfig struct {
	InputBucket       string
	InputKey          string
	OutputBucket      string
	OutputKey         string
	InputStagingPath  string
	OutputStagingPath string
	IDColumn          string
	PredictionColumn  string
}

// RegionOrDefault returns the configured region or DefaultRegion.
func (c S3Config) RegionOrDefault() string {
	if c.Region == "" {
		return DefaultRegion
	}
	return c.Region
}

// HasStaticCredentials reports whether a full key pair was supplied.
func (c S3Config) HasStaticCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// WithDefaults fills the empty fields. The output bucket falls back to the
// input bucket.
func (c PipelineConfig) WithDefaults() PipelineConfig {
	if c.OutputBucket == "" {
		c.OutputBucket = c.InputBucket
	}
	if c.OutputKey == "" {
		c.OutputKey = DefaultOutputKey
	}
	if c.InputStagingPath == "" {
		c.InputStagingPath = DefaultInputStagingPath
	}
	if c.OutputStagingPath == "" {
		c.OutputStagingPath = DefaultOutputStagingPath
	}
	if c.IDColumn == "" {
		c.IDColumn = DefaultIDColumn
	}
	if c.PredictionColumn == "" {
		c.PredictionColumn = DefaultPredictionColumn
	}
	return c
}
