// Package lspserver implements a Language Server Protocol server that
// relints open documents through the orchestration engine.
//
// On open and on every change the server debounces (using the engine's
// adaptive delay plus the configured extra), snapshots the document,
// resolves its applicable linters and schedules a lint cycle. Deliveries
// land in the per-file finding store and are published as aggregated
// diagnostics, guarded against superseded document versions.
//
// Transport: stdio only (--stdio).
// Protocol: LSP 3.17 subset via internal/lsp/protocol, JSON-RPC via
// sourcegraph/jsonrpc2.
package lspserver

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/wharflab/relint/internal/config"
	"github.com/wharflab/relint/internal/document"
	"github.com/wharflab/relint/internal/engine"
	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/lsp/protocol"
	"github.com/wharflab/relint/internal/status"
	"github.com/wharflab/relint/internal/store"
	"github.com/wharflab/relint/internal/style"
	"github.com/wharflab/relint/internal/version"
)

const serverName = "relint"

// Options configures a Server.
type Options struct {
	// Logger receives server and engine logs; the LSP transport owns
	// stdout, so this must write to stderr or a file.
	Logger logrus.FieldLogger
	// Concurrency overrides the engine pool size.
	Concurrency int
	// Linters builds the engine linter descriptors for one snapshot.
	// Defaults to command linters from the resolved configuration.
	Linters LinterResolver
}

// LinterResolver turns a resolved config and a document snapshot into the
// linter descriptors the engine schedules.
type LinterResolver func(cfg *config.Config, snap *document.Snapshot, onFailure func(linterName string)) []engine.LinterInfo

// Server is the relint LSP server.
type Server struct {
	log       logrus.FieldLogger
	eng       *engine.Engine
	documents *document.Store
	results   *store.Store
	tracker   *status.Tracker
	linters   LinterResolver

	settingsMu sync.RWMutex
	settings   clientSettings

	// stylesMu guards the per-file priority rules the engine's finalizer
	// queries while jobs are in flight.
	stylesMu sync.RWMutex
	styles   map[string]style.Rules

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

// New creates an LSP server and its engine.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		log:       log,
		documents: document.NewStore(),
		results:   store.New(),
		settings:  defaultClientSettings(),
		styles:    make(map[string]style.Rules),
		timers:    make(map[string]*time.Timer),
	}
	s.linters = opts.Linters
	if s.linters == nil {
		s.linters = s.commandLinters
	}

	bus := event.NewBus()
	s.tracker = status.NewTracker(bus)
	s.eng = engine.New(engine.Options{
		Logger:      log,
		Bus:         bus,
		Concurrency: opts.Concurrency,
		Priority:    s.priority,
	})
	return s
}

// Close stops the debounce timers and shuts down the engine.
func (s *Server) Close() {
	s.timersMu.Lock()
	for uri, timer := range s.timers {
		timer.Stop()
		delete(s.timers, uri)
	}
	s.timersMu.Unlock()
	s.tracker.Detach()
	s.eng.Close()
}

// RunStdio starts the LSP server on stdin/stdout.
// It blocks until the connection is closed or the context is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	stream := jsonrpc2.NewBufferedStream(stdioReadWriteCloser{}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.Handle))
	select {
	case <-ctx.Done():
		return conn.Close()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// Handle dispatches incoming JSON-RPC messages to the appropriate handler.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	// Lifecycle
	case "initialize":
		return unmarshalAndCall(req, s.handleInitialize)
	case "initialized", "$/setTrace":
		return nil, nil //nolint:nilnil // LSP: notifications have no result
	case "shutdown":
		return nil, nil //nolint:nilnil // LSP: shutdown returns null
	case "exit":
		return nil, conn.Close()

	// Document sync
	case "textDocument/didOpen":
		return nil, unmarshalAndNotify(req, func(p *protocol.DidOpenTextDocumentParams) {
			s.handleDidOpen(ctx, conn, p)
		})
	case "textDocument/didChange":
		return nil, unmarshalAndNotify(req, func(p *protocol.DidChangeTextDocumentParams) {
			s.handleDidChange(ctx, conn, p)
		})
	case "textDocument/didSave":
		return nil, unmarshalAndNotify(req, func(p *protocol.DidSaveTextDocumentParams) {
			s.handleDidSave(ctx, conn, p)
		})
	case "textDocument/didClose":
		return nil, unmarshalAndNotify(req, func(p *protocol.DidCloseTextDocumentParams) {
			s.handleDidClose(ctx, conn, p)
		})

	// Workspace
	case "workspace/didChangeConfiguration":
		return nil, unmarshalAndNotify(req, func(p *protocol.DidChangeConfigurationParams) {
			s.handleDidChangeConfiguration(ctx, conn, p)
		})

	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "method not supported: " + req.Method,
		}
	}
}

// handleInitialize responds with the server's capabilities: full-document
// sync with open/close and save notifications.
func (s *Server) handleInitialize(params *protocol.InitializeParams) (any, error) {
	s.log.Debugf("lsp: initialize (root %s)", params.RootURI)
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      true,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: version.RawVersion(),
		},
	}, nil
}

// handleDidOpen registers the document and schedules its first lint.
func (s *Server) handleDidOpen(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidOpenTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	doc := s.documents.Open(uri, uriToPath(uri), params.TextDocument.Text, params.TextDocument.Version)
	s.scheduleLint(ctx, conn, uri, doc)
}

// handleDidChange updates the document and schedules a relint after the
// adaptive debounce delay.
func (s *Server) handleDidChange(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidChangeTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	doc, ok := s.documents.Get(uri)
	if !ok {
		return
	}
	// Full sync: the last change carries the complete text.
	for _, change := range params.ContentChanges {
		doc.SetText(change.Text)
	}
	doc.SetVersion(params.TextDocument.Version)
	s.scheduleLint(ctx, conn, uri, doc)
}

// handleDidSave relints immediately; saving is an explicit user action.
func (s *Server) handleDidSave(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidSaveTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	doc, ok := s.documents.Get(uri)
	if !ok {
		return
	}
	if params.Text != nil {
		doc.SetText(*params.Text)
	}
	s.lint(ctx, conn, uri, doc)
}

// handleDidClose clears stored findings and published diagnostics.
func (s *Server) handleDidClose(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidCloseTextDocumentParams) {
	uri := string(params.TextDocument.URI)
	s.cancelPending(uri)
	doc, ok := s.documents.Close(uri)
	if !ok {
		return
	}
	s.results.Clear(doc.Filename())
	s.setStyles(doc.Filename(), nil)
	s.notify(ctx, conn, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
}

// handleDidChangeConfiguration stores the editor settings and relints
// every open document under the new configuration.
func (s *Server) handleDidChangeConfiguration(ctx context.Context, conn *jsonrpc2.Conn, params *protocol.DidChangeConfigurationParams) {
	settings, err := parseClientSettings(params.Settings)
	if err != nil {
		s.log.Warnf("lsp: ignoring malformed settings: %v", err)
		return
	}
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()

	for uri, doc := range s.documents.All() {
		s.scheduleLint(ctx, conn, uri, doc)
	}
}

func (s *Server) notify(ctx context.Context, conn *jsonrpc2.Conn, method string, params any) {
	if conn == nil {
		return
	}
	if err := conn.Notify(ctx, method, params); err != nil {
		s.log.Debugf("lsp: notify %s failed: %v", method, err)
	}
}

// unmarshalAndCall unmarshals request params into T and calls fn.
func unmarshalAndCall[T any](req *jsonrpc2.Request, fn func(*T) (any, error)) (any, error) {
	var params T
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
	}
	return fn(&params)
}

// unmarshalAndNotify unmarshals request params into T and calls fn (for
// notifications that have no return).
func unmarshalAndNotify[T any](req *jsonrpc2.Request, fn func(*T)) error {
	var params T
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
	}
	fn(&params)
	return nil
}

// stdioReadWriteCloser wraps stdin/stdout as an io.ReadWriteCloser for JSON-RPC.
type stdioReadWriteCloser struct{}

func (stdioReadWriteCloser) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioReadWriteCloser) Close() error                { return nil }
