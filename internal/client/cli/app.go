package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/docqa/internal/client/client"
	"github.com/dmitrijs2005/docqa/internal/client/config"
	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/services"
	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/client/view"
	"github.com/dmitrijs2005/docqa/internal/filex"
	"github.com/dmitrijs2005/docqa/internal/logging"
	"golang.org/x/term"
)

const logFileName = "client.log"

type renderer interface {
	services.Renderer
	status.Sink
}

// apiBase holds the backend base address; it can be changed from the REPL
// while operations are running.
type apiBase struct {
	mu sync.RWMutex
	v  string
}

func (b *apiBase) Base() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v
}

func (b *apiBase) set(v string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.v = config.TrimBase(v)
}

type App struct {
	config       *config.Config
	logger       logging.Logger
	logFile      io.Closer
	status       *status.Channel
	view         renderer
	orchestrator *services.Orchestrator
	dispatcher   *Dispatcher
	base         apiBase
	topK         atomic.Int32
	in           io.Reader
	out          io.Writer
	interactive  bool
}

// NewApp builds the client from c, reading commands from stdin and writing
// results to stdout. Diagnostics go to LogDir/client.log.
func NewApp(c *config.Config) (*App, error) {
	f, err := filex.OpenAppend(c.LogDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	logger := logging.NewJSONLogger(f, c.LogLevel)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	a := newApp(c, logger, os.Stdin, os.Stdout, interactive)
	a.logFile = f
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, in io.Reader, out io.Writer, interactive bool) *App {
	a := &App{
		config:      c,
		logger:      logger,
		in:          in,
		out:         out,
		interactive: interactive,
	}
	a.base.set(c.APIBase)
	a.topK.Store(int32(c.TopK))

	var html *view.HTMLRenderer
	if c.Output == config.OutputHTML {
		html = view.NewHTMLRenderer(out)
		a.view = html
	} else {
		a.view = view.NewTextRenderer(out, interactive)
	}

	a.status = status.NewChannel(a.view, logger)
	if html != nil {
		html.OnMarkdownError = func(err error) {
			logger.Warn(context.Background(), "markdown render failed", "error", err)
			a.status.ReportKind(status.KindParse, "Markdown render error — fell back to raw", status.Warn)
		}
	}

	httpClient := &http.Client{Timeout: c.HTTPTimeout}
	gw := client.NewGateway(httpClient, &a.base, a.status, logger)
	uploader := services.NewUploadWorkflow(gw, httpClient, a.status, logger, c.DefaultContentType)

	a.orchestrator = services.NewOrchestrator(gw, uploader, a.status, a.view, logger, c.TopK)
	a.dispatcher = NewDispatcher(a.status, logger)
	return a
}

// Run starts the REPL and blocks until the user exits or input ends. It
// waits for any operation still in flight before returning.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.logger.Info(ctx, "client started", "api", a.base.Base(), "output", a.config.Output)
	if a.config.APIOverridden {
		a.status.ReportKind(status.KindOK, "Using API override from -api", status.OK)
	}
	if a.interactive {
		printlnFn("Welcome to docqa (type 'help' for commands)")
	}

	scanner := bufio.NewScanner(a.in)
	for a.serve(ctx, scanner) {
	}
	a.dispatcher.Wait()
	return nil
}

// serve runs the REPL until it returns. A panic in a command is reported
// and serve returns true so the caller resumes reading input.
func (a *App) serve(ctx context.Context, scanner *bufio.Scanner) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			a.dispatcher.report(ctx, "repl", r)
			panicked = true
		}
	}()
	runREPL(ctx, a, a.prompt, scanner)
	return false
}

func (a *App) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func (a *App) prompt() string {
	if !a.interactive {
		return ""
	}
	if a.orchestrator.Busy() {
		return "docqa (busy)> "
	}
	return "docqa> "
}

// dispatch runs fn on the dispatcher. With piped input it waits for fn so
// that scripted commands do not collide with each other.
func (a *App) dispatch(ctx context.Context, name string, fn func(ctx context.Context)) {
	a.dispatcher.Go(ctx, name, fn)
	if !a.interactive {
		a.dispatcher.Wait()
	}
}

func (a *App) Search(ctx context.Context, query string) {
	k := int(a.topK.Load())
	a.dispatch(ctx, "search", func(ctx context.Context) {
		_ = a.orchestrator.RunSearch(ctx, query, k)
	})
}

func (a *App) Answer(ctx context.Context, query string) {
	k := int(a.topK.Load())
	a.dispatch(ctx, "answer", func(ctx context.Context) {
		_ = a.orchestrator.RunAnswer(ctx, query, k)
	})
}

// Upload sends the file at path. An empty path means no file was chosen. A
// path that cannot be opened is rejected without starting an operation.
func (a *App) Upload(ctx context.Context, path string) {
	var file *models.SelectedFile
	if path = strings.TrimSpace(path); path != "" {
		f, err := models.FileFromPath(path)
		if err != nil {
			a.logger.Warn(ctx, "file not selectable", "path", path, "error", err)
			_ = a.orchestrator.RejectUpload(filepath.Base(path))
			return
		}
		file = f
	}

	a.dispatch(ctx, "upload", func(ctx context.Context) {
		_ = a.orchestrator.RunUpload(ctx, file)
	})
}

func (a *App) TopK() int {
	return int(a.topK.Load())
}

// SetTopK changes the number of matches requested by later commands.
func (a *App) SetTopK(k int) error {
	if k < 1 || k > 50 {
		return fmt.Errorf("top-k must be between 1 and 50, got %d", k)
	}
	a.topK.Store(int32(k))
	return nil
}

func (a *App) APIBase() string {
	return a.base.Base()
}

func (a *App) SetAPIBase(base string) {
	a.base.set(base)
	a.logger.Info(context.Background(), "api base changed", "api", a.base.Base())
}

func (a *App) Clear() {
	a.view.Clear()
}

func (a *App) StatusLine() string {
	r := a.status.Last()
	if r.Message == "" {
		return "(no status yet)"
	}
	return fmt.Sprintf("[%s] %s (%s, %s)", r.Severity, r.Message, r.Kind, r.At.Format("15:04:05"))
}
