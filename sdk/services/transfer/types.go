// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

// -------- Download --------

type DownloadRequest struct {
	Bucket    string
	Key       string // obbligatorio
	LocalPath string // opzionale; default = base name of Key in the working directory
}

// -------- Upload --------

type UploadRequest struct {
	LocalPath string // obbligatorio, must be a regular file
	Bucket    string
	Key       string // opzionale; default = base name of LocalPath
}

// Result is the outcome of a single transfer. Kind is KindNone on success;
// otherwise Err holds the classified cause.
type Result struct {
	Op         string
	Kind       Kind
	Bucket     string
	Key        string
	LocalPath  string
	URL        string // upload only
	RemoteSize int64
	LocalSize  int64
	Err        error
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Message is the human readable diagnostic for a failed transfer.
func (r Result) Message() string {
	if r.OK() {
		return ""
	}
	return describe(r.Kind, r.Op, r.Bucket, r.Key, r.LocalPath, r.Err)
}
