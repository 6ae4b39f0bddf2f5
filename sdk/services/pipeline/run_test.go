// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/dataset"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/internal/testutil"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/model"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/pipeline"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/services/transfer"
)

const inputCSV = "PassengerId,Feature1\n1,0.5\n2,1.2\n3,0.9\n"

type stubModel struct {
	preds []string
	err   error
	seen  *dataset.Table
}

func (m *stubModel) Predict(_ context.Context, t *dataset.Table) ([]string, error) {
	m.seen = t
	return m.preds, m.err
}

// store is an in-memory bucket behind the S3 mock.
type store struct {
	mock     *testutil.MockS3Client
	uploaded map[string]string
}

func newStore(t *testing.T, objects map[string]string) *store {
	t.Helper()
	st := &store{uploaded: map[string]string{}}
	st.mock = &testutil.MockS3Client{
		HeadObjectFunc: func(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			body, ok := objects[aws.ToString(in.Key)]
			if !ok {
				return nil, &s3types.NotFound{Message: aws.String("Not Found")}
			}
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(body)))}, nil
		},
		GetObjectFunc: func(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			body := objects[aws.ToString(in.Key)]
			return &s3.GetObjectOutput{
				Body:          io.NopCloser(strings.NewReader(body)),
				ContentLength: aws.Int64(int64(len(body))),
			}, nil
		},
		PutObjectFunc: func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			if aws.ToString(in.Bucket) == "does-not-exist" {
				return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"}
			}
			b, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			st.uploaded[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(b)
			return &s3.PutObjectOutput{}, nil
		},
	}
	return st
}

func newPipeline(t *testing.T, st *store, m model.Predictor, loads *atomic.Int32, mutate func(*config.PipelineConfig)) *pipeline.PipelineService {
	t.Helper()
	dir := t.TempDir()
	conf := config.Config{
		Tracking: config.TrackingConfig{ModelReference: "models:/titanic/1"},
		Pipeline: config.PipelineConfig{
			InputBucket:       "bucket",
			InputKey:          "data/test.csv",
			InputStagingPath:  filepath.Join(dir, "test.csv"),
			OutputStagingPath: filepath.Join(dir, "predictions.csv"),
		},
	}
	if mutate != nil {
		mutate(&conf.Pipeline)
	}

	factory, _ := st.mock.Factory()
	ts, err := transfer.NewTransferService(context.Background(), conf, transfer.WithClientFactory(factory))
	require.NoError(t, err)

	loader := pipeline.LoaderFunc(func(_ context.Context, ref string) (model.Predictor, error) {
		loads.Add(1)
		assert.Equal(t, "models:/titanic/1", ref)
		return m, nil
	})
	svc, err := pipeline.NewPipelineService(context.Background(), conf,
		pipeline.WithTransferer(ts), pipeline.WithModelLoader(loader))
	require.NoError(t, err)
	return svc
}

func TestRun_EndToEnd(t *testing.T) {
	st := newStore(t, map[string]string{"data/test.csv": inputCSV})
	m := &stubModel{preds: []string{"0", "1", "0"}}
	var loads atomic.Int32
	svc := newPipeline(t, st, m, &loads, nil)

	res, err := svc.Run(context.Background())

	require.NoError(t, err)
	require.True(t, res.OK(), res.Message())
	assert.Equal(t, "data/predictions.csv", res.Key)
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/data/predictions.csv", res.URL)
	assert.Equal(t, "PassengerId,predictions\n1,0\n2,1\n3,0\n", st.uploaded["bucket/data/predictions.csv"])

	staged, err := os.ReadFile(svc.Config().OutputStagingPath)
	require.NoError(t, err)
	assert.Equal(t, st.uploaded["bucket/data/predictions.csv"], string(staged))

	require.NotNil(t, m.seen)
	assert.Equal(t, []string{"PassengerId", "Feature1"}, m.seen.Columns)
	assert.Equal(t, int32(1), loads.Load())
}

func TestRun_PreservesRowOrder(t *testing.T) {
	const n = 50
	var sb strings.Builder
	sb.WriteString("PassengerId,Feature1\n")
	preds := make([]string, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(1000 - i)
		sb.WriteString(id + ",0." + strconv.Itoa(i) + "\n")
		preds[i] = strconv.Itoa(i % 2)
	}
	st := newStore(t, map[string]string{"data/test.csv": sb.String()})
	var loads atomic.Int32
	svc := newPipeline(t, st, &stubModel{preds: preds}, &loads, func(c *config.PipelineConfig) {
		c.OutputBucket = "results"
		c.OutputKey = "out/scored.csv"
	})

	res, err := svc.Run(context.Background())

	require.NoError(t, err)
	require.True(t, res.OK(), res.Message())
	out, err := dataset.ReadCSV(strings.NewReader(st.uploaded["results/out/scored.csv"]))
	require.NoError(t, err)
	require.Equal(t, n, out.Len())
	for i, row := range out.Rows {
		assert.Equal(t, []string{strconv.Itoa(1000 - i), preds[i]}, row)
	}
}

func TestRun_DownloadFailureAborts(t *testing.T) {
	st := newStore(t, map[string]string{})
	var loads atomic.Int32
	svc := newPipeline(t, st, &stubModel{}, &loads, nil)

	res, err := svc.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrDownloadFailed)
	assert.ErrorIs(t, err, transfer.ErrObjectNotFound)
	assert.Equal(t, transfer.KindObjectNotFound, res.Kind)
	assert.Zero(t, loads.Load())
	assert.Zero(t, st.mock.PutObjectCalls.Load())
}

func TestRun_ProbeEscalation(t *testing.T) {
	st := newStore(t, nil)
	st.mock.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "InternalError", Message: "boom"}
	}
	var loads atomic.Int32
	svc := newPipeline(t, st, &stubModel{}, &loads, nil)

	_, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, transfer.ErrProbe)
	assert.NotErrorIs(t, err, pipeline.ErrDownloadFailed)
	assert.Zero(t, loads.Load())
}

func TestRun_PredictionFailureIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
	}{
		{name: "model error", model: &stubModel{err: errors.New("shape mismatch")}},
		{name: "short output", model: &stubModel{preds: []string{"0"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t, map[string]string{"data/test.csv": inputCSV})
			var loads atomic.Int32
			svc := newPipeline(t, st, tt.model, &loads, nil)

			_, err := svc.Run(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, pipeline.ErrPrediction)
			assert.Contains(t, err.Error(), "error during prediction")
			assert.Zero(t, st.mock.PutObjectCalls.Load())
		})
	}
}

func TestRun_MissingIDColumn(t *testing.T) {
	st := newStore(t, map[string]string{"data/test.csv": inputCSV})
	var loads atomic.Int32
	svc := newPipeline(t, st, &stubModel{}, &loads, func(c *config.PipelineConfig) {
		c.IDColumn = "RecordId"
	})

	_, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
	assert.Zero(t, loads.Load())
}

func TestRun_UploadFailureIsNotAnError(t *testing.T) {
	st := newStore(t, map[string]string{"data/test.csv": inputCSV})
	var loads atomic.Int32
	svc := newPipeline(t, st, &stubModel{preds: []string{"0", "1", "0"}}, &loads, func(c *config.PipelineConfig) {
		c.OutputBucket = "does-not-exist"
	})

	res, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, transfer.KindBucketNotFound, res.Kind)
	assert.Equal(t, "Bucket 'does-not-exist' does not exist.", res.Message())
	assert.Equal(t, int32(1), st.mock.PutObjectCalls.Load())
}

func TestNewPipelineService_RequiresTrackingURI(t *testing.T) {
	_, err := pipeline.NewPipelineService(context.Background(), config.Config{})
	assert.Error(t, err)
}
