package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/dmitrijs2005/docqa/internal/client/client"
	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentCall struct {
	path    string
	payload any
}

type fakeSender struct {
	mu      sync.Mutex
	calls   []sentCall
	out     client.Outcome
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, path string, payload any) client.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, sentCall{path: path, payload: payload})
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.out
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeUploader struct {
	calls int
	meta  *models.UploadMetadata
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, file *models.SelectedFile) (*models.UploadMetadata, error) {
	f.calls++
	return f.meta, f.err
}

type fakeView struct {
	mu       sync.Mutex
	clears   int
	searches []models.SearchResponse
	answers  []models.AnswerResponse
	uploads  []models.UploadMetadata
	panicOn  bool
}

func (v *fakeView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clears++
}

func (v *fakeView) RenderSearch(resp models.SearchResponse) {
	if v.panicOn {
		panic("render exploded")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.searches = append(v.searches, resp)
}

func (v *fakeView) RenderAnswer(resp models.AnswerResponse) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.answers = append(v.answers, resp)
}

func (v *fakeView) RenderUpload(meta models.UploadMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uploads = append(v.uploads, meta)
}

type kindSink struct {
	mu      sync.Mutex
	records []status.Record
}

func (k *kindSink) ShowStatus(r status.Record) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.records = append(k.records, r)
}

func (k *kindSink) messageOf(kind status.Kind) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, r := range k.records {
		if r.Kind == kind {
			return r.Message
		}
	}
	return ""
}

func okOutcome(body string) client.Outcome {
	return client.Outcome{Payload: json.RawMessage(body)}
}

func newOrchestrator(s Sender, u Uploader, v Renderer) (*Orchestrator, *status.Channel) {
	ch := status.NewChannel(nil, nil)
	return NewOrchestrator(s, u, ch, v, logging.Discard(), 5), ch
}

func TestRunSearch_RendersPayload(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{"top_k":[{"score":0.75,"page":2,"chunkId":"c1","source":"doc.pdf","text":"hello"}]}`)}
	v := &fakeView{}
	o, _ := newOrchestrator(s, &fakeUploader{}, v)

	require.NoError(t, o.RunSearch(context.Background(), "  what is X?  ", 3))

	require.Equal(t, 1, s.count())
	assert.Equal(t, "/search", s.calls[0].path)
	assert.Equal(t, models.QueryRequest{Query: "what is X?", TopK: 3}, s.calls[0].payload)
	require.Len(t, v.searches, 1)
	assert.Equal(t, "c1", v.searches[0].TopK[0].ChunkID)
	assert.Equal(t, 1, v.clears, "previous results cleared before a new search")
	assert.False(t, o.Busy())
}

func TestRunAnswer_RendersPayload(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{"answer_md":"**yes**","citations":[{"score":1,"chunkId":"c9","source":"s"}]}`)}
	v := &fakeView{}
	o, _ := newOrchestrator(s, &fakeUploader{}, v)

	require.NoError(t, o.RunAnswer(context.Background(), "why", 0))

	assert.Equal(t, "/answer", s.calls[0].path)
	assert.Equal(t, 5, s.calls[0].payload.(models.QueryRequest).TopK, "0 means default")
	require.Len(t, v.answers, 1)
	assert.True(t, v.answers[0].Polished())
	assert.Equal(t, "c9", v.answers[0].Citations[0].ChunkID)
}

func TestRunQuery_TopKClamped(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{}`)}
	o, _ := newOrchestrator(s, &fakeUploader{}, &fakeView{})

	require.NoError(t, o.RunSearch(context.Background(), "q", 500))
	require.NoError(t, o.RunSearch(context.Background(), "q", -1))

	assert.Equal(t, maxTopK, s.calls[0].payload.(models.QueryRequest).TopK)
	assert.Equal(t, 5, s.calls[1].payload.(models.QueryRequest).TopK)
}

func TestRun_ValidationShortCircuit(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{}`)}
	u := &fakeUploader{}
	v := &fakeView{}
	o, ch := newOrchestrator(s, u, v)
	ctx := context.Background()

	err := o.RunSearch(ctx, "", 5)
	require.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Enter a query", ch.Last().Message)
	assert.Equal(t, status.KindValidation, ch.Last().Kind)

	require.True(t, errors.Is(o.RunAnswer(ctx, "   \t", 5), ErrValidation))

	err = o.RunUpload(ctx, nil)
	require.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "Choose a file", ch.Last().Message)

	assert.Equal(t, 0, s.count(), "no network call")
	assert.Equal(t, 0, u.calls)
	assert.Equal(t, 0, v.clears, "view untouched")
	assert.False(t, o.Busy())
}

func TestRun_MutualExclusion(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{}`), entered: make(chan struct{}, 1), release: make(chan struct{})}
	u := &fakeUploader{meta: &models.UploadMetadata{Key: "k"}}
	o, ch := newOrchestrator(s, u, &fakeView{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- o.RunSearch(ctx, "first", 5) }()
	<-s.entered
	require.True(t, o.Busy())

	require.True(t, errors.Is(o.RunSearch(ctx, "second", 5), ErrBusy))
	assert.Equal(t, status.KindBusy, ch.Last().Kind)
	assert.Equal(t, "Please wait — still processing…", ch.Last().Message)

	require.True(t, errors.Is(o.RunAnswer(ctx, "third", 5), ErrBusy))
	require.True(t, errors.Is(o.RunUpload(ctx, memFile("a.pdf", "", "x")), ErrBusy))
	require.True(t, errors.Is(o.RunSearch(ctx, "", 5), ErrBusy), "busy check precedes validation")

	assert.Equal(t, 1, s.count())
	assert.Equal(t, 0, u.calls)

	close(s.release)
	require.NoError(t, <-done)
	assert.False(t, o.Busy())
}

func TestRun_BackToBackSearchesMakeOneCall(t *testing.T) {
	s := &fakeSender{
		out:     client.Outcome{Err: &client.Failure{Kind: client.KindNetwork, Phase: client.PhaseRequest}},
		release: make(chan struct{}),
	}
	sink := &kindSink{}
	ch := status.NewChannel(sink, nil)
	o := NewOrchestrator(s, &fakeUploader{}, ch, &fakeView{}, nil, 5)
	ctx := context.Background()

	results := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			results <- o.RunSearch(ctx, "same", 5)
		}()
	}
	close(start)

	// The loser returns while the winner is parked inside Send.
	first := <-results
	require.True(t, errors.Is(first, ErrBusy))
	busyText := sink.messageOf(status.KindBusy)

	close(s.release)
	second := <-results
	require.True(t, errors.Is(second, client.ErrNetwork))

	assert.Equal(t, 1, s.count())
	assert.NotEqual(t, "Network/CORS error — see log", busyText)
	assert.Equal(t, "Please wait — still processing…", busyText)
}

func TestRun_LockReleasedOnEveryOutcome(t *testing.T) {
	tests := []struct {
		name string
		out  client.Outcome
	}{
		{"success", okOutcome(`{}`)},
		{"http", client.Outcome{Err: &client.Failure{Kind: client.KindHTTP, Status: 500}}},
		{"network", client.Outcome{Err: &client.Failure{Kind: client.KindNetwork}}},
		{"parse", client.Outcome{Err: &client.Failure{Kind: client.KindParse}}},
		{"non-object payload", okOutcome(`[1,2,3]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{out: tt.out}
			o, _ := newOrchestrator(s, &fakeUploader{}, &fakeView{})

			_ = o.RunSearch(context.Background(), "q", 5)
			require.False(t, o.Busy())

			// a subsequent operation can acquire
			s.out = okOutcome(`{}`)
			require.NoError(t, o.RunAnswer(context.Background(), "q", 5))
		})
	}
}

func TestRun_LockReleasedWhenViewPanics(t *testing.T) {
	s := &fakeSender{out: okOutcome(`{}`)}
	v := &fakeView{panicOn: true}
	o, _ := newOrchestrator(s, &fakeUploader{}, v)

	require.Panics(t, func() { _ = o.RunSearch(context.Background(), "q", 5) })
	assert.False(t, o.Busy())

	v.panicOn = false
	require.NoError(t, o.RunSearch(context.Background(), "q", 5))
}

func TestRun_FailureRendersNothing(t *testing.T) {
	s := &fakeSender{out: client.Outcome{Err: &client.Failure{Kind: client.KindHTTP, Status: 502}}}
	v := &fakeView{}
	o, _ := newOrchestrator(s, &fakeUploader{}, v)

	err := o.RunAnswer(context.Background(), "q", 5)
	require.True(t, errors.Is(err, client.ErrHTTP))
	assert.Empty(t, v.answers)
}

func TestRunUpload_TransferForbiddenDeliversNothing(t *testing.T) {
	storage := newStorage(t, http.StatusForbidden, "denied")
	backend := newBackend(t, func(w http.ResponseWriter, req models.UploadRequest) {
		_ = json.NewEncoder(w).Encode(map[string]string{"uploadUrl": storage.srv.URL, "key": "k1"})
	})

	ch := status.NewChannel(nil, nil)
	gw := client.NewGateway(http.DefaultClient, client.BaseFunc(func() string { return backend.srv.URL }), ch, nil)
	wf := NewUploadWorkflow(gw, http.DefaultClient, ch, nil, "application/pdf")
	v := &fakeView{}
	o := NewOrchestrator(gw, wf, ch, v, nil, 5)

	err := o.RunUpload(context.Background(), memFile("a.pdf", "application/pdf", "x"))

	var f *client.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, client.PhaseTransferring, f.Phase)
	assert.Equal(t, status.Warn, ch.Last().Severity)
	assert.Empty(t, v.uploads)
	assert.False(t, o.Busy())
}

func TestRunUpload_Success(t *testing.T) {
	u := &fakeUploader{meta: &models.UploadMetadata{Key: "k1", S3URI: "s3://b/k1", ContentType: "application/pdf"}}
	v := &fakeView{}
	o, _ := newOrchestrator(&fakeSender{}, u, v)

	require.NoError(t, o.RunUpload(context.Background(), memFile("a.pdf", "", "x")))

	require.Len(t, v.uploads, 1)
	assert.Equal(t, "s3://b/k1", v.uploads[0].S3URI)
	assert.Equal(t, 0, v.clears, "upload keeps earlier results")
}

func newRecordingOrchestrator(u Uploader) (*Orchestrator, *kindSink) {
	sink := &kindSink{}
	ch := status.NewChannel(sink, nil)
	return NewOrchestrator(&fakeSender{}, u, ch, &fakeView{}, logging.Discard(), 5), sink
}

func TestRunUpload_FileWithoutOpenIsValidation(t *testing.T) {
	u := &fakeUploader{}
	o, sink := newRecordingOrchestrator(u)

	err := o.RunUpload(context.Background(), &models.SelectedFile{Name: "a.pdf"})

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, u.calls)
	assert.False(t, o.Busy())
	require.Len(t, sink.records, 1)
	assert.Equal(t, status.KindValidation, sink.records[0].Kind)
}

func TestRejectUpload_ReportsOnceWithoutLocking(t *testing.T) {
	u := &fakeUploader{}
	o, sink := newRecordingOrchestrator(u)

	err := o.RejectUpload("missing.pdf")

	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, o.Busy())
	assert.Equal(t, 0, u.calls)
	require.Len(t, sink.records, 1, "one status per attempt, no progress")
	assert.Equal(t, "Cannot read missing.pdf", sink.records[0].Message)
	assert.Equal(t, status.KindValidation, sink.records[0].Kind)
	assert.Equal(t, status.Warn, sink.records[0].Severity)
	assert.Empty(t, sink.messageOf(status.KindProgress))
}

func TestRejectUpload_BusyTakesPrecedence(t *testing.T) {
	o, sink := newRecordingOrchestrator(&fakeUploader{})
	require.True(t, o.lock.TryAcquire())
	defer o.lock.Release()

	err := o.RejectUpload("missing.pdf")

	require.ErrorIs(t, err, ErrBusy)
	require.Len(t, sink.records, 1)
	assert.Equal(t, status.KindBusy, sink.records[0].Kind)
}
