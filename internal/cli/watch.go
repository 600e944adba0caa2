package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchSettleTime = 2 * time.Second

var watchExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest PDFs as they appear in a directory",
	Long: `Watch a directory and ingest every PDF that is created or rewritten in it.
A file is ingested once it has not changed for a short settle time. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "ingest the PDFs already in the directory first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		w := cmd.OutOrStdout()
		pw := newPDFWatcher(watchSettleTime, func(ctx context.Context, path string) {
			out, err := svc.Ingest(ctx, ingest.Request{Path: path})
			if out.FileName == "" {
				out.FileName = filepath.Base(path)
			}
			if err != nil && out.Error == "" {
				out.Error = err.Error()
			}
			printOutcome(w, out)
		})

		fw, err := pw.watch(dir)
		if err != nil {
			return err
		}
		defer fw.Close()

		if watchExisting {
			existing, err := filepath.Glob(filepath.Join(dir, "*"))
			if err != nil {
				return err
			}
			for _, path := range existing {
				if isPDF(path) {
					pw.ingest(ctx, path)
				}
			}
		}

		heading.Fprintf(w, "Watching %s for PDFs\n", dir)
		pw.loop(ctx, fw)
		return nil
	})
}

// pdfWatcher debounces file events and ingests each settled PDF once per burst of writes.
type pdfWatcher struct {
	settle time.Duration
	ingest func(ctx context.Context, path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	logger  *logger_i.Logger
}

func newPDFWatcher(settle time.Duration, ingest func(ctx context.Context, path string)) *pdfWatcher {
	return &pdfWatcher{
		settle:  settle,
		ingest:  ingest,
		pending: map[string]*time.Timer{},
		ready:   make(chan string, 16),
		logger:  logger_i.NewLogger("watcher"),
	}
}

func (p *pdfWatcher) watch(dir string) (*fsnotify.Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// loop returns when ctx is done or the watcher is closed.
func (p *pdfWatcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer p.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if isPDF(event.Name) {
					p.schedule(event.Name)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watch error", "error", err)
		case path := <-p.ready:
			ingestCtx, cancel := context.WithTimeout(ctx, config.IngestJobTimeout)
			p.ingest(ingestCtx, path)
			cancel()
		}
	}
}

func (p *pdfWatcher) schedule(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.pending[path]; ok {
		t.Reset(p.settle)
		return
	}
	p.pending[path] = time.AfterFunc(p.settle, func() {
		p.mu.Lock()
		delete(p.pending, path)
		p.mu.Unlock()
		p.ready <- path
	})
}

func (p *pdfWatcher) stopTimers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path, t := range p.pending {
		t.Stop()
		delete(p.pending, path)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), config.AcceptedExtension)
}
