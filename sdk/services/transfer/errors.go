// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
)

// Kind classifies why a transfer failed.
type Kind int

const (
	KindNone Kind = iota
	KindCredentialsMissing
	KindBucketNotFound
	KindObjectNotFound
	KindAccessDenied
	KindTransportOther
	KindLocalFileMissing
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindCredentialsMissing:
		return "CredentialsMissing"
	case KindBucketNotFound:
		return "BucketNotFound"
	case KindObjectNotFound:
		return "ObjectNotFound"
	case KindAccessDenied:
		return "AccessDenied"
	case KindTransportOther:
		return "TransportOther"
	case KindLocalFileMissing:
		return "LocalFileMissing"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors, one per failure kind. Use errors.Is on Result.Err.
var (
	ErrCredentialsMissing = config.ErrNoCredentials
	ErrBucketNotFound     = errors.New("s3: bucket not found")
	ErrObjectNotFound     = errors.New("s3: object not found")
	ErrAccessDenied       = errors.New("s3: access denied")
	ErrLocalFileMissing   = errors.New("local file not found")

	// ErrProbe is returned by Download when the metadata probe fails for a
	// reason other than a missing object or missing credentials.
	ErrProbe = errors.New("error checking object existence")
)

// Error carries the operation context of a failed transfer.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps an SDK error onto a Kind and the matching sentinel,
// keeping the original error in the chain.
func classify(err error) (Kind, error) {
	if errors.Is(err, config.ErrNoCredentials) {
		return KindCredentialsMissing, err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return KindBucketNotFound, fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		case "AccessDenied", "Forbidden":
			return KindAccessDenied, fmt.Errorf("%w: %w", ErrAccessDenied, err)
		case "NoSuchKey", "NotFound":
			return KindObjectNotFound, fmt.Errorf("%w: %w", ErrObjectNotFound, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusForbidden:
			return KindAccessDenied, fmt.Errorf("%w: %w", ErrAccessDenied, err)
		case http.StatusNotFound:
			return KindObjectNotFound, fmt.Errorf("%w: %w", ErrObjectNotFound, err)
		}
	}

	return KindTransportOther, err
}

// isNotFound reports whether a probe error is a plain 404.
func isNotFound(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

const credentialsHelp = "AWS credentials not found. Please configure your credentials. You can set them via:\n" +
	"  - Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)\n" +
	"  - AWS credentials file (~/.aws/credentials)\n" +
	"  - IAM roles (if running on EC2)"

func describe(kind Kind, op, bucket, key, localPath string, err error) string {
	switch kind {
	case KindCredentialsMissing:
		return credentialsHelp
	case KindBucketNotFound:
		return fmt.Sprintf("Bucket '%s' does not exist.", bucket)
	case KindObjectNotFound:
		return fmt.Sprintf("Object '%s' not found in bucket '%s'.", key, bucket)
	case KindAccessDenied:
		if op == opDownload {
			return fmt.Sprintf("Access denied. Check your permissions for bucket '%s' and object '%s'.", bucket, key)
		}
		return fmt.Sprintf("Access denied. Check your permissions for bucket '%s'.", bucket)
	case KindLocalFileMissing:
		return fmt.Sprintf("File '%s' not found.", localPath)
	default:
		return fmt.Sprintf("Error during %s: %v", op, err)
	}
}
