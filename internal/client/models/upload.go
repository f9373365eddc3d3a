package models

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// UploadRequest is the body of POST /upload.
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// UploadMetadata is what the backend hands out for a two-phase upload and
// what the client shows once the transfer is done. Only UploadURL and Key
// are required; ExpiresIn (seconds) is informational.
type UploadMetadata struct {
	UploadURL   string `json:"uploadUrl"`
	Key         string `json:"key"`
	S3URI       string `json:"s3Uri"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

// Complete reports whether the mandatory fields are present.
func (m UploadMetadata) Complete() bool {
	return m.UploadURL != "" && m.Key != ""
}

// SelectedFile is a read-only handle on the document picked for upload.
// MIMEType may be empty when it cannot be determined.
type SelectedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FileFromPath builds a SelectedFile for a file on disk. The MIME type is
// derived from the extension only; parameters such as charset are dropped.
func FileFromPath(path string) (*SelectedFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ct := ""
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			ct = mt
		}
	}

	return &SelectedFile{
		Name:     filepath.Base(path),
		MIMEType: ct,
		Size:     fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
