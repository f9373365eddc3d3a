package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docqa/internal/client/client"
	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/logging"
	"github.com/dmitrijs2005/docqa/internal/netx"
)

// UploadState is a step of the two-phase upload.
type UploadState int

const (
	StateIdle UploadState = iota
	StateAwaitingUploadURL
	StateTransferring
	StateDone
	StateFailed
)

func (s UploadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingUploadURL:
		return "awaiting_upload_url"
	case StateTransferring:
		return "transferring"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Exchanger is the gateway call the workflow needs: a JSON exchange that
// does not report status on its own.
type Exchanger interface {
	Exchange(ctx context.Context, path string, payload any) client.Outcome
}

// UploadWorkflow asks the backend for a presigned write location and then
// PUTs the file bytes straight to storage.
type UploadWorkflow struct {
	gw                 Exchanger
	storage            netx.Doer
	status             *status.Channel
	logger             logging.Logger
	defaultContentType string

	mu          sync.Mutex
	state       UploadState
	failedPhase client.Phase
}

// NewUploadWorkflow builds the workflow. storage is the HTTP client used for
// the direct PUT; defaultContentType is used when a file has no MIME type.
func NewUploadWorkflow(gw Exchanger, storage netx.Doer, ch *status.Channel, logger logging.Logger, defaultContentType string) *UploadWorkflow {
	if logger == nil {
		logger = logging.Discard()
	}
	return &UploadWorkflow{
		gw:                 gw,
		storage:            storage,
		status:             ch,
		logger:             logger,
		defaultContentType: defaultContentType,
	}
}

// State returns the current state and, when failed, the phase that failed.
func (w *UploadWorkflow) State() (UploadState, client.Phase) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.failedPhase
}

func (w *UploadWorkflow) setState(s UploadState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
	w.failedPhase = ""
}

func (w *UploadWorkflow) fail(f *client.Failure) *client.Failure {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateFailed
	w.failedPhase = f.Phase
	return f
}

// Upload runs the handshake for file. On success it returns the metadata of
// the stored object. Every failure has already been reported to the status
// channel; the returned error is a *client.Failure tagged with its phase, or
// wraps ErrValidation when the file cannot be read.
//
// A failure in the metadata phase means nothing was written. A failure in
// the transfer phase means a write location was issued but the object may
// or may not exist; there is no rollback.
func (w *UploadWorkflow) Upload(ctx context.Context, file *models.SelectedFile) (*models.UploadMetadata, error) {
	w.setState(StateIdle)

	if file == nil || file.Open == nil {
		w.status.ReportKind(status.KindValidation, "Choose a file", status.Warn)
		return nil, ErrValidation
	}

	body, err := file.Open()
	if err != nil {
		w.logger.Warn(ctx, "open file", "file", file.Name, "error", err)
		w.status.ReportKind(status.KindValidation, fmt.Sprintf("Cannot read %s", file.Name), status.Warn)
		return nil, fmt.Errorf("%w: open %s: %v", ErrValidation, file.Name, err)
	}
	defer body.Close()

	contentType := file.MIMEType
	if contentType == "" {
		contentType = w.defaultContentType
	}
	log := w.logger.With("file", file.Name, "content_type", contentType)

	// 1) ask the backend for a presigned URL
	w.setState(StateAwaitingUploadURL)
	out := w.gw.Exchange(ctx, "/upload", models.UploadRequest{Filename: file.Name, ContentType: contentType})
	if !out.OK() {
		f := out.Err
		f.Phase = client.PhaseAwaitingUploadURL
		switch f.Kind {
		case client.KindNetwork:
			w.status.ReportKind(status.KindNetwork, "Upload URL error (network)", status.Warn)
		case client.KindHTTP:
			w.status.ReportKind(status.KindHTTP, fmt.Sprintf("Upload URL error (HTTP %d)", f.Status), status.Warn)
		default:
			w.status.ReportKind(status.KindParse, "Upload URL error (payload)", status.Warn)
		}
		return nil, w.fail(f)
	}

	var meta models.UploadMetadata
	decodeErr := models.Decode(out.Payload, &meta)
	if decodeErr != nil || !meta.Complete() {
		log.Warn(ctx, "upload metadata incomplete", "payload", string(out.Payload), "error", decodeErr)
		w.status.ReportKind(status.KindParse, "Upload URL error (payload)", status.Warn)
		return nil, w.fail(&client.Failure{
			Kind:  client.KindParse,
			Phase: client.PhaseAwaitingUploadURL,
			Body:  string(out.Payload),
			Cause: decodeErr,
		})
	}

	// 2) PUT the bytes directly to storage
	w.setState(StateTransferring)
	w.status.ReportKind(status.KindProgress, "Uploading to storage…", status.OK)
	log.Info(ctx, "transfer", "key", meta.Key, "expires_in", meta.ExpiresIn)

	err = netx.PutPresigned(ctx, w.storage, meta.UploadURL, contentType, body, file.Size)
	if err != nil {
		var se *netx.StatusError
		if errors.As(err, &se) {
			log.Warn(ctx, "storage PUT error", "key", meta.Key, "status", se.StatusCode, "body", se.Body)
			w.status.ReportKind(status.KindHTTP,
				fmt.Sprintf("Storage PUT failed (HTTP %d) — object state unknown", se.StatusCode), status.Warn)
			return nil, w.fail(&client.Failure{
				Kind:   client.KindHTTP,
				Status: se.StatusCode,
				Phase:  client.PhaseTransferring,
				Body:   se.Body,
			})
		}
		log.Error(ctx, "storage PUT failed", "key", meta.Key, "error", err)
		w.status.ReportKind(status.KindNetwork, "Storage PUT failed (network) — object state unknown", status.Warn)
		return nil, w.fail(&client.Failure{Kind: client.KindNetwork, Phase: client.PhaseTransferring, Cause: err})
	}

	if meta.ContentType == "" {
		meta.ContentType = contentType
	}
	w.setState(StateDone)
	w.status.ReportKind(status.KindOK, "Uploaded OK — processing…", status.OK)
	log.Info(ctx, "uploaded", "key", meta.Key, "s3_uri", meta.S3URI)
	return &meta, nil
}
