package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/logging"
)

// Ext is the container file extension, matched case-insensitively.
const Ext = ".cxbin"

// Stage is where the batch, or one of its jobs, currently is.
type Stage int

const (
	Idle Stage = iota
	Enumerating
	Reading
	Exporting
	Reporting
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enumerating:
		return "enumerating"
	case Reading:
		return "reading"
	case Exporting:
		return "exporting"
	case Reporting:
		return "reporting"
	case Done:
		return "done"
	}
	return "unknown"
}

// Config holds the shared resources of a batch run.
type Config struct {
	Converter *convert.Converter
	// Job is the template every input is converted with; Input is replaced.
	Job     convert.Job
	Workers int
	Logger  *log.Logger
	// ProgressEvery is the interval of progress log lines; zero means 2s.
	ProgressEvery time.Duration

	// OnStage is called on every stage transition. input is empty for
	// batch-level stages.
	OnStage func(input string, s Stage)
	// OnReport is called once per input, in input order when Workers is 1.
	OnReport func(index int, r convert.Report)
}

// Gather lists the containers under root. A file is returned as is, whatever
// its extension. A directory yields its *.cxbin files, descending into
// subdirectories when recursive is set. Paths are sorted.
func Gather(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &convert.IOError{Op: "stat", Path: root, Err: unwrapPath(err)}
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var inputs []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isContainer(d) {
				inputs = append(inputs, path)
			}
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(root)
		for _, d := range entries {
			if isContainer(d) {
				inputs = append(inputs, filepath.Join(root, d.Name()))
			}
		}
	}
	if err != nil {
		return nil, &convert.IOError{Op: "scan", Path: root, Err: unwrapPath(err)}
	}
	sort.Strings(inputs)
	return inputs, nil
}

func isContainer(d os.DirEntry) bool {
	return d.Type().IsRegular() && strings.EqualFold(filepath.Ext(d.Name()), Ext)
}

func unwrapPath(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}

// Run converts every input. A failing input never stops the batch; the
// returned error is a *convert.PartialBatchFailure when any report failed.
// Reports are returned in input order.
func Run(ctx context.Context, cfg Config, inputs []string) ([]convert.Report, error) {
	l := cfg.Logger
	if l == nil {
		l = logging.Discard()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) && len(inputs) > 0 {
		workers = len(inputs)
	}

	emit := func(input string, s Stage) {
		l.Debug("stage", "stage", s, "input", input)
		if cfg.OnStage != nil {
			cfg.OnStage(input, s)
		}
	}
	emit("", Idle)
	emit("", Enumerating)
	l.Debug("batch", "inputs", len(inputs), "workers", workers, "format", cfg.Job.Format.Name)

	total := len(inputs)
	results := make([]convert.Report, total)
	var processed atomic.Int64
	var reportMu sync.Mutex

	convertOne := func(idx int) {
		input := inputs[idx]
		job := cfg.Job
		job.Input = input
		job.OnStage = func(stage string) {
			switch stage {
			case convert.StageReading:
				emit(input, Reading)
			case convert.StageExporting:
				emit(input, Exporting)
			}
		}
		r := cfg.Converter.Convert(ctx, job)
		results[idx] = r

		emit(input, Reporting)
		if cfg.OnReport != nil {
			reportMu.Lock()
			cfg.OnReport(idx, r)
			reportMu.Unlock()
		}
		processed.Add(1)
	}

	start := time.Now()
	done := make(chan struct{})
	if total > 1 {
		go progress(l, cfg.ProgressEvery, start, total, &processed, done)
	}

	if workers == 1 {
		for i := range inputs {
			convertOne(i)
		}
	} else {
		// Worker pool
		idxChan := make(chan int, workers*2)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range idxChan {
					convertOne(idx)
				}
			}()
		}
		for i := range inputs {
			idxChan <- i
		}
		close(idxChan)
		wg.Wait()
	}
	close(done)
	emit("", Done)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	l.Debug("batch finished", "total", total, "failed", failed, "elapsed", time.Since(start))
	if failed > 0 {
		return results, &convert.PartialBatchFailure{Failed: failed, Total: total}
	}
	return results, nil
}

func progress(l *log.Logger, every time.Duration, start time.Time, total int, processed *atomic.Int64, done <-chan struct{}) {
	if every <= 0 {
		every = 2 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p := processed.Load(); p > 0 {
				rate := float64(p) / time.Since(start).Seconds()
				l.Infof("[%d/%d] %.1f files/sec", p, total, rate)
			}
		}
	}
}
