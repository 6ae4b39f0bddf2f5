// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// multipartThreshold is the size above which uploads go through the
// multipart manager instead of a single PutObject.
const multipartThreshold = 100 * 1024 * 1024

// ErrNoCredentials tags every failure to obtain credentials from the
// configured provider chain.
var ErrNoCredentials = errors.New("s3: credentials not found")

// S3API is the subset of the S3 client used here. *s3.Client satisfies it,
// and so does manager.UploadAPIClient.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

var _ S3API = (*s3.Client)(nil)

type S3Client struct {
	s3 S3API
}

// NewS3Client builds a client for one transfer. A full key pair in cfgCreds
// is used as-is; otherwise the SDK default chain resolves credentials from
// the environment, the shared credentials file and finally the instance or
// container role. Retries are disabled: every call is attempted once.
func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfgCreds.RegionOrDefault()),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfgCreds.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				cfgCreds.AccessKey,
				cfgCreds.SecretKey,
				cfgCreds.AccessToken,
			),
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cfg.Credentials = credentialsGuard{provider: cfg.Credentials}

	s3Options := func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			o.UsePathStyle = true
		}
	}

	return &S3Client{
		s3: s3.NewFromConfig(cfg, s3Options),
	}, nil
}

// NewS3ClientFromAPI wraps an already configured API, typically a mock.
func NewS3ClientFromAPI(api S3API) *S3Client {
	return &S3Client{s3: api}
}

// credentialsGuard marks provider failures with ErrNoCredentials so callers
// can tell them apart from service errors.
type credentialsGuard struct {
	provider aws.CredentialsProvider
}

func (g credentialsGuard) Retrieve(ctx context.Context) (aws.Credentials, error) {
	if g.provider == nil {
		return aws.Credentials{}, ErrNoCredentials
	}
	creds, err := g.provider.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}
	if !creds.HasKeys() {
		return aws.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

/* -------------------- PROGRESS HOOK -------------------- */

type ProgressHook struct {
	OnStart    func(key string, totalBytes int64)
	OnProgress func(key string, written, totalBytes int64)
	OnDone     func(key string, totalBytes int64, took time.Duration)
}

func (h *ProgressHook) start(key string, total int64) {
	if h != nil && h.OnStart != nil {
		h.OnStart(key, total)
	}
}

func (h *ProgressHook) done(key string, total int64, took time.Duration) {
	if h != nil && h.OnDone != nil {
		h.OnDone(key, total, took)
	}
}

type progressWriter struct {
	key        string
	total      int64
	written    int64
	lastEmit   time.Time
	interval   time.Duration
	onProgress func(key string, written, total int64)
}

func newProgressWriter(key string, total int64, hook *ProgressHook) *progressWriter {
	pw := &progressWriter{
		key:      key,
		total:    total,
		interval: 250 * time.Millisecond,
	}
	if hook != nil {
		pw.onProgress = hook.OnProgress
	}
	return pw
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)
	now := time.Now()
	if pw.onProgress != nil && (pw.written == pw.total || now.Sub(pw.lastEmit) >= pw.interval) {
		pw.onProgress(pw.key, pw.written, pw.total)
		pw.lastEmit = now
	}
	return n, nil
}

// progressReadSeeker keeps the body seekable so the SDK can sign and rewind
// it; Seek resets the progress counter.
type progressReadSeeker struct {
	rs io.ReadSeeker
	pw *progressWriter
}

func (r *progressReadSeeker) Read(p []byte) (int, error) {
	n, err := r.rs.Read(p)
	if n > 0 {
		_, _ = r.pw.Write(p[:n])
	}
	return n, err
}

func (r *progressReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.rs.Seek(offset, whence)
	if err == nil {
		r.pw.written = pos
	}
	return pos, err
}

/* -------------------- HEAD -------------------- */

// HeadObject probes the object and returns its size without fetching it.
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

/* -------------------- DOWNLOAD -------------------- */

// DownloadFile streams the object into localPath, truncating any previous
// content, and returns the number of bytes written.
func (c *S3Client) DownloadFile(
	ctx context.Context,
	bucket, key, localPath string,
	hook *ProgressHook,
) (int64, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()

	total := aws.ToInt64(out.ContentLength)
	hook.start(key, total)

	f, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	tee := io.TeeReader(out.Body, newProgressWriter(key, total, hook))

	n, err := io.Copy(f, tee)
	if err != nil {
		return n, fmt.Errorf("failed to write to local file: %w", err)
	}

	hook.done(key, total, time.Since(start))
	return n, nil
}

/* -------------------- UPLOAD -------------------- */

// UploadFile sends the whole file under bucket/key. Files above the
// multipart threshold go through the transfer manager.
func (c *S3Client) UploadFile(
	ctx context.Context,
	bucket, key string,
	file *os.File,
	contentType string,
	hook *ProgressHook,
) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat error: %w", err)
	}
	size := info.Size()
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek error: %w", err)
	}

	hook.start(key, size)
	start := time.Now()
	reader := &progressReadSeeker{rs: file, pw: newProgressWriter(key, size, hook)}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if size > multipartThreshold {
		_, err = manager.NewUploader(c.s3).Upload(ctx, input)
	} else {
		input.ContentLength = aws.Int64(size)
		_, err = c.s3.PutObject(ctx, input)
	}
	if err != nil {
		return err
	}

	hook.done(key, size, time.Since(start))
	return nil
}
