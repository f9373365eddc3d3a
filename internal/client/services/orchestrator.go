package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docqa/internal/client/client"
	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/oplock"
	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/logging"
)

const maxTopK = 50

// Sender is the reporting gateway call used by search and answer.
type Sender interface {
	Send(ctx context.Context, path string, payload any) client.Outcome
}

// Uploader runs the two-phase upload.
type Uploader interface {
	Upload(ctx context.Context, file *models.SelectedFile) (*models.UploadMetadata, error)
}

// Renderer is the view layer: it receives successful results only.
type Renderer interface {
	Clear()
	RenderSearch(resp models.SearchResponse)
	RenderAnswer(resp models.AnswerResponse)
	RenderUpload(meta models.UploadMetadata)
}

// Orchestrator runs the user-facing operations one at a time. It owns the
// operation lock; a call made while another is in flight is rejected with
// ErrBusy and touches neither the network nor the view.
//
// Every Run method reports its outcome to the status channel before it
// returns. The returned error is for programmatic callers and may be ignored.
type Orchestrator struct {
	lock     oplock.Lock
	gw       Sender
	uploader Uploader
	status   *status.Channel
	view     Renderer
	logger   logging.Logger
	topK     int
}

func NewOrchestrator(gw Sender, uploader Uploader, ch *status.Channel, view Renderer, logger logging.Logger, defaultTopK int) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Orchestrator{gw: gw, uploader: uploader, status: ch, view: view, logger: logger, topK: defaultTopK}
}

// Busy reports whether an operation is in flight.
func (o *Orchestrator) Busy() bool {
	return o.lock.Held()
}

func (o *Orchestrator) RunSearch(ctx context.Context, query string, topK int) error {
	return o.runQuery(ctx, "/search", "Searching…", query, topK, func(p json.RawMessage) {
		var resp models.SearchResponse
		if err := models.Decode(p, &resp); err != nil {
			o.logger.Warn(ctx, "unexpected search payload", "error", err)
		}
		o.view.RenderSearch(resp)
	})
}

func (o *Orchestrator) RunAnswer(ctx context.Context, query string, topK int) error {
	return o.runQuery(ctx, "/answer", "Answering…", query, topK, func(p json.RawMessage) {
		var resp models.AnswerResponse
		if err := models.Decode(p, &resp); err != nil {
			o.logger.Warn(ctx, "unexpected answer payload", "error", err)
		}
		o.view.RenderAnswer(resp)
	})
}

func (o *Orchestrator) RunUpload(ctx context.Context, file *models.SelectedFile) error {
	if o.rejectIfBusy() {
		return ErrBusy
	}
	if file == nil || file.Open == nil {
		o.status.ReportKind(status.KindValidation, "Choose a file", status.Warn)
		return ErrValidation
	}
	if !o.acquire() {
		return ErrBusy
	}
	defer o.lock.Release()

	o.status.ReportKind(status.KindProgress, "Requesting upload URL…", status.OK)
	meta, err := o.uploader.Upload(ctx, file)
	if err != nil {
		return err
	}
	o.view.RenderUpload(*meta)
	return nil
}

// RejectUpload reports a file that could not be selected for upload. It
// goes through the busy check like RunUpload but never takes the lock.
func (o *Orchestrator) RejectUpload(name string) error {
	if o.rejectIfBusy() {
		return ErrBusy
	}
	o.status.ReportKind(status.KindValidation, fmt.Sprintf("Cannot read %s", name), status.Warn)
	return ErrValidation
}

func (o *Orchestrator) runQuery(ctx context.Context, path, progress, query string, topK int, render func(json.RawMessage)) error {
	if o.rejectIfBusy() {
		return ErrBusy
	}
	q := strings.TrimSpace(query)
	if q == "" {
		o.status.ReportKind(status.KindValidation, "Enter a query", status.Warn)
		return ErrValidation
	}
	if !o.acquire() {
		return ErrBusy
	}
	defer o.lock.Release()

	o.view.Clear()
	o.status.ReportKind(status.KindProgress, progress, status.OK)

	out := o.gw.Send(ctx, path, models.QueryRequest{Query: q, TopK: o.clampTopK(topK)})
	if !out.OK() {
		return out.Err
	}
	render(out.Payload)
	return nil
}

func (o *Orchestrator) rejectIfBusy() bool {
	if !o.lock.Held() {
		return false
	}
	o.reportBusy()
	return true
}

// acquire covers the window between the Held check and validation, where
// another caller may have taken the lock.
func (o *Orchestrator) acquire() bool {
	if o.lock.TryAcquire() {
		return true
	}
	o.reportBusy()
	return false
}

func (o *Orchestrator) reportBusy() {
	o.status.ReportKind(status.KindBusy, "Please wait — still processing…", status.Warn)
}

func (o *Orchestrator) clampTopK(k int) int {
	switch {
	case k <= 0:
		return o.topK
	case k > maxTopK:
		return maxTopK
	default:
		return k
	}
}
