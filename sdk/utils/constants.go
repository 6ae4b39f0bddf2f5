// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".dhinfer.ini"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	S3BucketName          = "s3_bucket_name"
	S3ObjectKey           = "s3_object_key"
	S3EndpointURL         = "s3_endpoint_url"
	AwsAccessKeyID        = "aws_access_key_id"
	AwsSecretAccessKey    = "aws_secret_access_key"
	AwsSessionToken       = "aws_session_token"
	AwsDefaultRegion      = "aws_default_region"
	MlflowTrackingURI     = "mlflow_tracking_uri"
	MlflowLoggedModel     = "mlflow_logged_model"
	MlflowTrackingToken   = "mlflow_tracking_token"
	MlflowTrackingUser    = "mlflow_tracking_username"
	MlflowTrackingPass    = "mlflow_tracking_password"
	ModelServingURL       = "model_serving_url"
	OutputBucketName      = "output_bucket_name"
	OutputObjectKey       = "output_object_key"
	InputStagingPath      = "input_staging_path"
	OutputStagingPath     = "output_staging_path"
	IDColumn              = "id_column"
	PredictionColumn      = "prediction_column"
	LogLevel              = "log_level"
	secretMask            = "********"
	defaultEnvironmentTag = "default"
)
