// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

// clearEnv blanks every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, f := range settingFields() {
		t.Setenv(f.env, "")
		t.Setenv(EnvPrefix+"_"+f.env, "")
	}
}

const profile = `[DEFAULT]
current_environment = staging
aws_default_region = eu-west-1
id_column = RecordId

[staging]
s3_bucket_name = staging-bucket
s3_object_key = data/test.csv
mlflow_tracking_uri = http://mlflow.staging:5000

[prod]
s3_bucket_name = prod-bucket
mlflow_tracking_uri = http://mlflow.prod:5000
`

func writeProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), IniName)
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o600))
	return path
}

func TestLoadProfile_Defaults(t *testing.T) {
	clearEnv(t)
	v := NewViper()

	require.NoError(t, LoadProfile(v, filepath.Join(t.TempDir(), "missing.ini")))

	conf := ToConfig(v)
	assert.Equal(t, "us-east-1", conf.S3.Region)
	assert.Equal(t, "/tmp/test.csv", conf.Pipeline.InputStagingPath)
	assert.Equal(t, "/tmp/predictions.csv", conf.Pipeline.OutputStagingPath)
	assert.Equal(t, "data/predictions.csv", conf.Pipeline.OutputKey)
	assert.Equal(t, "PassengerId", conf.Pipeline.IDColumn)
	assert.Equal(t, "predictions", conf.Pipeline.PredictionColumn)
	assert.Equal(t, "default", v.GetString(CurrentEnvironment))
}

func TestLoadProfile_Sections(t *testing.T) {
	tests := []struct {
		name       string
		env        []string
		wantEnv    string
		wantBucket string
		wantURI    string
	}{
		{name: "current environment", wantEnv: "staging", wantBucket: "staging-bucket", wantURI: "http://mlflow.staging:5000"},
		{name: "explicit section", env: []string{"prod"}, wantEnv: "prod", wantBucket: "prod-bucket", wantURI: "http://mlflow.prod:5000"},
		{name: "unknown section", env: []string{"dev"}, wantEnv: "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			v := NewViper()

			require.NoError(t, LoadProfile(v, writeProfile(t), tt.env...))

			conf := ToConfig(v)
			assert.Equal(t, tt.wantEnv, v.GetString(CurrentEnvironment))
			assert.Equal(t, tt.wantBucket, conf.Pipeline.InputBucket)
			assert.Equal(t, tt.wantURI, conf.Tracking.TrackingURI)
			assert.Equal(t, "eu-west-1", conf.S3.Region)
			assert.Equal(t, "RecordId", conf.Pipeline.IDColumn)
		})
	}
}

func TestLoadProfile_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "env-bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv(EnvPrefix+"_MLFLOW_LOGGED_MODEL", "models:/titanic/1")
	v := NewViper()

	require.NoError(t, LoadProfile(v, writeProfile(t)))

	conf := ToConfig(v)
	assert.Equal(t, "env-bucket", conf.Pipeline.InputBucket)
	assert.Equal(t, "data/test.csv", conf.Pipeline.InputKey)
	assert.Equal(t, "models:/titanic/1", conf.Tracking.ModelReference)
	assert.True(t, conf.S3.HasStaticCredentials())
}

func TestLoadProfile_Malformed(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), IniName)
	require.NoError(t, os.WriteFile(path, []byte("[broken\n"), 0o600))

	assert.Error(t, LoadProfile(NewViper(), path))
}

func TestSaveProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "bucket")
	t.Setenv("AWS_SESSION_TOKEN", "session")
	t.Setenv("LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), IniName)

	require.NoError(t, SaveProfile(NewViper(), path, "lab"))

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String())
	sec := cfg.Section("lab")
	assert.Equal(t, "bucket", sec.Key(S3BucketName).String())
	assert.Equal(t, "PassengerId", sec.Key(IDColumn).String())
	assert.NotEmpty(t, sec.Key(UpdatedEnvKey).String())
	assert.False(t, sec.HasKey(AwsSessionToken))
	assert.False(t, sec.HasKey(LogLevel))
}

func TestDescribe_MasksSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("S3_BUCKET_NAME", "bucket")

	values := map[string]string{}
	for _, kv := range Describe(NewViper()) {
		values[kv.Key] = kv.Value
	}

	assert.Equal(t, secretMask, values[AwsSecretAccessKey])
	assert.Equal(t, "", values[AwsAccessKeyID])
	assert.Equal(t, "bucket", values[S3BucketName])
}
