package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/logging"
	"github.com/dmitrijs2005/docqa/internal/netx"
	"github.com/google/uuid"
)

// emptyObject is what a 2xx response that is not JSON decodes to.
var emptyObject = json.RawMessage(`{}`)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// BaseResolver yields the backend base address, without a trailing slash.
type BaseResolver interface {
	Base() string
}

// BaseFunc adapts a function to BaseResolver.
type BaseFunc func() string

func (f BaseFunc) Base() string { return f() }

// Gateway performs single JSON request/response exchanges with the backend.
// It never retries.
type Gateway struct {
	doer   netx.Doer
	base   BaseResolver
	status *status.Channel
	logger logging.Logger
}

// NewGateway builds a Gateway. doer defaults to http.DefaultClient.
func NewGateway(doer netx.Doer, base BaseResolver, ch *status.Channel, logger logging.Logger) *Gateway {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gateway{doer: doer, base: base, status: ch, logger: logger}
}

// Send POSTs payload as JSON to path and reports exactly one status:
// "OK" on success, or a warn that names the failure kind.
func (g *Gateway) Send(ctx context.Context, path string, payload any) Outcome {
	out := g.Exchange(ctx, path, payload)
	if g.status == nil {
		return out
	}

	switch {
	case out.OK():
		g.status.ReportKind(status.KindOK, "OK", status.OK)
	case out.Err.Kind == KindHTTP:
		g.status.ReportKind(status.KindHTTP, fmt.Sprintf("HTTP %d — see log", out.Err.Status), status.Warn)
	case out.Err.Kind == KindNetwork:
		g.status.ReportKind(status.KindNetwork, "Network/CORS error — see log", status.Warn)
	default:
		g.status.ReportKind(status.KindParse, "Bad request payload — see log", status.Warn)
	}
	return out
}

// Exchange is Send without the status report, for callers that word their
// own status (the upload workflow). Failures carry PhaseRequest.
func (g *Gateway) Exchange(ctx context.Context, path string, payload any) Outcome {
	url := g.url(path)
	log := g.logger.With("op_id", uuid.NewString(), "url", url)

	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error(ctx, "encode request", "error", err)
		return failure(&Failure{Kind: KindParse, Phase: PhaseRequest, Cause: fmt.Errorf("encode request: %w", err)})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error(ctx, "build request", "error", err)
		return failure(&Failure{Kind: KindNetwork, Phase: PhaseRequest, Cause: err})
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug(ctx, "request", "body", string(body))

	resp, err := g.doer.Do(req)
	if err != nil {
		log.Error(ctx, "fetch failed", "error", err)
		return failure(&Failure{Kind: KindNetwork, Phase: PhaseRequest, Cause: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		log.Error(ctx, "read body", "status", resp.StatusCode, "error", err)
		return failure(&Failure{Kind: KindNetwork, Phase: PhaseRequest, Cause: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn(ctx, "error response", "status", resp.StatusCode, "body", string(raw))
		return failure(&Failure{Kind: KindHTTP, Status: resp.StatusCode, Phase: PhaseRequest, Body: string(raw)})
	}

	log.Debug(ctx, "response", "status", resp.StatusCode, "bytes", len(raw))
	return success(tolerantJSON(raw))
}

func (g *Gateway) url(path string) string {
	base := ""
	if g.base != nil {
		base = strings.TrimRight(g.base.Base(), "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// tolerantJSON returns raw when it is valid JSON and an empty object
// otherwise. A malformed success body is therefore indistinguishable from
// an empty one downstream.
func tolerantJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return emptyObject
	}
	return json.RawMessage(trimmed)
}
