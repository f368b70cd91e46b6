package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// recordSeparator splits a multi-record screen into per-patient chunks on
// blank lines. List views render one patient per block; a screen with no
// blank lines is a single record.
var recordSeparator = regexp.MustCompile(`\n\s*\n`)

// BatchResult pairs each record chunk with its run outcome, in screen order.
type BatchResult struct {
	Results []RunResult `json:"results"`
	// Failed counts results that did not reach StateSucceeded.
	Failed int `json:"failed"`
}

// RunBatch captures and recognizes the screen once, splits the text into
// per-record chunks, and processes each chunk concurrently with a bounded
// worker pool. A failing record does not abort its siblings; confirmation is
// never used in batch mode since there is no interactive session per record.
func (p *Pipeline) RunBatch(ctx context.Context) (BatchResult, error) {
	state := StateIdle

	shot, err := p.stageCapture(ctx, &state)
	if err != nil {
		return BatchResult{}, err
	}
	rawText, err := p.stageRecognize(ctx, &state, shot.Image)
	if err != nil {
		return BatchResult{}, err
	}

	chunks := SplitRecords(rawText)
	if len(chunks) == 0 {
		return BatchResult{}, fmt.Errorf("batch: no text recognized")
	}
	slog.Info("Batch run", "records", len(chunks), "workers", p.cfg.BatchWorkers)

	results := make([]RunResult, len(chunks))
	sem := make(chan struct{}, p.cfg.BatchWorkers)
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// Batch records run without confirmation: incomplete ones fail
			// individually and are reported in the result set.
			worker := *p
			worker.cfg.RequireConfirmation = false
			worker.onStage = nil // per-record transitions would interleave
			st := StateRecognizing
			results[i] = worker.processText(ctx, &st, chunk)
		}(i, chunk)
	}
	wg.Wait()

	out := BatchResult{Results: results}
	for _, r := range results {
		if r.State != StateSucceeded {
			out.Failed++
		}
	}
	return out, nil
}

// SplitRecords splits recognized screen text into per-record chunks on blank
// lines, dropping empty chunks.
func SplitRecords(rawText string) []string {
	var chunks []string
	for _, c := range recordSeparator.Split(rawText, -1) {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}
