package lspserver

import (
	"context"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/wharflab/relint/internal/config"
	"github.com/wharflab/relint/internal/document"
	"github.com/wharflab/relint/internal/engine"
	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
	"github.com/wharflab/relint/internal/linter"
	"github.com/wharflab/relint/internal/lsp/protocol"
	"github.com/wharflab/relint/internal/style"
)

// scheduleLint queues a lint cycle for the document after the debounce
// delay. A pending cycle for the same URI is replaced, so a typing burst
// produces one cycle, not one per keystroke.
func (s *Server) scheduleLint(ctx context.Context, conn *jsonrpc2.Conn, uri string, doc *document.Document) {
	cfg, err := s.resolveConfig(doc.Filename())
	if err != nil {
		s.log.Warnf("lsp: config for %s: %v", doc.ShortName(), err)
		return
	}
	extra, err := cfg.DelayDuration()
	if err != nil {
		s.log.Warnf("lsp: invalid delay %q: %v", cfg.Delay, err)
		extra = 0
	}
	delay := s.eng.Delay(extra)

	s.timersMu.Lock()
	if timer := s.timers[uri]; timer != nil {
		timer.Stop()
	}
	s.timers[uri] = time.AfterFunc(delay, func() {
		s.timersMu.Lock()
		delete(s.timers, uri)
		s.timersMu.Unlock()
		s.lintWith(ctx, conn, uri, doc, cfg)
	})
	s.timersMu.Unlock()
}

// lint runs a lint cycle for the document immediately, dropping any
// pending debounced cycle.
func (s *Server) lint(ctx context.Context, conn *jsonrpc2.Conn, uri string, doc *document.Document) {
	s.cancelPending(uri)
	cfg, err := s.resolveConfig(doc.Filename())
	if err != nil {
		s.log.Warnf("lsp: config for %s: %v", doc.ShortName(), err)
		return
	}
	s.lintWith(ctx, conn, uri, doc, cfg)
}

// cancelPending drops the debounced cycle for uri, if any.
func (s *Server) cancelPending(uri string) {
	s.timersMu.Lock()
	if timer := s.timers[uri]; timer != nil {
		timer.Stop()
		delete(s.timers, uri)
	}
	s.timersMu.Unlock()
}

// lintWith snapshots the document and schedules its applicable linters.
// Each delivery lands in the result store and republishes the file's
// aggregated diagnostics, unless the buffer moved past the snapshot, in
// which case the newer cycle owns publishing.
func (s *Server) lintWith(ctx context.Context, conn *jsonrpc2.Conn, uri string, doc *document.Document, cfg *config.Config) {
	snap := doc.Snapshot()
	filename := snap.Filename()

	s.setStyles(filename, cfg.StyleRules())
	s.tracker.Assign(filename, cfg.LintersFor(filename))

	infos := s.linters(cfg, snap, func(linterName string) {
		s.tracker.Fail(filename, linterName)
	})
	if len(infos) == 0 {
		s.results.Clear(filename)
		s.publish(ctx, conn, uri, snap)
		return
	}

	changed := func() bool { return doc.ChangedSince(snap) }
	s.eng.Schedule(snap, infos, changed, func(linterName string, findings []*finding.Finding) {
		s.results.Update(filename, linterName, findings)
		s.eng.Bus().Publish(event.ResultsUpdated, event.Payload{
			Filename: filename,
			Linter:   linterName,
			Findings: findings,
		})
		if doc.ChangedSince(snap) {
			return
		}
		s.publish(ctx, conn, uri, snap)
	})
}

// commandLinters is the default LinterResolver: one command linter per
// enabled config table matching the file, examining the whole document.
func (s *Server) commandLinters(cfg *config.Config, snap *document.Snapshot, onFailure func(linterName string)) []engine.LinterInfo {
	names := cfg.LintersFor(snap.Filename())
	infos := make([]engine.LinterInfo, 0, len(names))
	for _, name := range names {
		lc := cfg.Linters[name]
		infos = append(infos, engine.LinterInfo{
			Name: name,
			New: func() engine.Linter {
				cmd, err := linter.New(name, lc, linter.Options{
					Filename:   snap.Filename(),
					ExtraPaths: cfg.Paths,
					Logger:     s.log,
					OnFailure:  func() { onFailure(name) },
				})
				if err != nil {
					s.log.Warnf("linter %s misconfigured: %v", name, err)
					return nil
				}
				return cmd
			},
			Regions: []finding.Region{snap.FullRegion()},
		})
	}
	return infos
}

// publish sends the file's aggregated findings as diagnostics, tagged with
// the snapshot's document version.
func (s *Server) publish(ctx context.Context, conn *jsonrpc2.Conn, uri string, snap *document.Snapshot) {
	findings := s.results.File(snap.Filename())
	diagnostics := make([]protocol.Diagnostic, 0, len(findings))
	for _, f := range findings {
		diagnostics = append(diagnostics, toDiagnostic(f, snap))
	}
	version := snap.Version()
	s.notify(ctx, conn, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// toDiagnostic converts a finding into an LSP diagnostic. Findings carry
// zero-based coordinates, same as LSP. A point finding highlights one
// character so editors render it visibly.
func toDiagnostic(f *finding.Finding, snap *document.Snapshot) protocol.Diagnostic {
	startLine, startChar := clampUint32(f.Line), clampUint32(f.Start)
	endLine, endChar := startLine, startChar+1
	if !f.Region.Empty() {
		row, col := snap.RowCol(f.Region.B)
		endLine, endChar = clampUint32(row), clampUint32(col)
	}
	severity := severityFor(f)
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: startLine, Character: startChar},
			End:   protocol.Position{Line: endLine, Character: endChar},
		},
		Severity: &severity,
		Code:     f.Code,
		Source:   f.Linter,
		Message:  f.Message,
	}
}

func severityFor(f *finding.Finding) protocol.DiagnosticSeverity {
	switch f.Tag() {
	case 'e':
		return protocol.DiagnosticSeverityError
	case 'w':
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// priority resolves a finding's display priority from the style rules of
// its file's current config. Wired into the engine at construction.
func (s *Server) priority(f *finding.Finding) int {
	s.stylesMu.RLock()
	defer s.stylesMu.RUnlock()
	return s.styles[f.Filename].Priority(f)
}

// setStyles records (or with nil rules, forgets) the compiled style rules
// for a file.
func (s *Server) setStyles(filename string, rules style.Rules) {
	s.stylesMu.Lock()
	if rules == nil {
		delete(s.styles, filename)
	} else {
		s.styles[filename] = rules
	}
	s.stylesMu.Unlock()
}

func clampUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v) //nolint:gosec // line/column numbers are well within uint32 range
}

// uriToPath converts a file:// URI to a local file path.
func uriToPath(docURI string) string {
	parsed, err := url.Parse(docURI)
	if err != nil {
		return strings.TrimPrefix(docURI, "file://")
	}
	path := parsed.Path
	if runtime.GOOS == "windows" {
		// UNC paths: file://server/share/path → \\server\share\path
		if parsed.Host != "" {
			path = `//` + parsed.Host + path
		}
		// Drive-letter paths: file:///C:/path → Path is /C:/path, strip leading /.
		if len(path) > 2 && path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
	}
	return filepath.FromSlash(path)
}
