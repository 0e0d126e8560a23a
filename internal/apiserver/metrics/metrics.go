// Package metrics collects business metrics of the apiserver: usecase
// timings, retrieval and LLM call counters, ingestion progress.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the process wide counters. All fields are updated with
// atomics, snapshots are taken lock free.
type Metrics struct {
	// conversation usecase counters
	usecaseCalls    uint64
	usecaseErrors   uint64
	usecaseDuration int64 // nanoseconds

	// retrieval counters
	retrievalTotal    uint64
	retrievalErrors   uint64
	retrievalDuration int64
	chunksRetrieved   uint64

	// LLM call counters
	llmCallsTotal    uint64
	llmCallsErrors   uint64
	llmCallsDuration int64

	// ingestion counters
	documentsIndexed uint64
	pagesIndexed     uint64
	ingestErrors     uint64
	filesDownloaded  uint64

	startTime time.Time
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the global metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordUsecase records the outcome and duration of one conversation
// usecase call.
func (m *Metrics) RecordUsecase(duration time.Duration, err error) {
	atomic.AddUint64(&m.usecaseCalls, 1)
	atomic.AddInt64(&m.usecaseDuration, int64(duration))
	if err != nil {
		atomic.AddUint64(&m.usecaseErrors, 1)
	}
}

// RecordRetrieval records one similarity search.
func (m *Metrics) RecordRetrieval(duration time.Duration, chunks int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	atomic.AddInt64(&m.retrievalDuration, int64(duration))
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	atomic.AddUint64(&m.chunksRetrieved, uint64(chunks))
}

// RecordLLMCall records one chat completion call.
func (m *Metrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	atomic.AddInt64(&m.llmCallsDuration, int64(duration))
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
	}
}

// RecordIngest records one document ingestion.
func (m *Metrics) RecordIngest(pages int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, 1)
	atomic.AddUint64(&m.pagesIndexed, uint64(pages))
}

// RecordDownload records one fresh file download.
func (m *Metrics) RecordDownload() {
	atomic.AddUint64(&m.filesDownloaded, 1)
}

// Stats returns a point-in-time snapshot keyed for JSON rendering.
func (m *Metrics) Stats() map[string]any {
	avg := func(total int64, count uint64) float64 {
		if count == 0 {
			return 0
		}
		return time.Duration(total).Seconds() / float64(count)
	}

	usecaseCalls := atomic.LoadUint64(&m.usecaseCalls)
	retrievals := atomic.LoadUint64(&m.retrievalTotal)
	llmCalls := atomic.LoadUint64(&m.llmCallsTotal)

	return map[string]any{
		"uptime_seconds":          time.Since(m.startTime).Seconds(),
		"usecase_calls_total":     usecaseCalls,
		"usecase_errors_total":    atomic.LoadUint64(&m.usecaseErrors),
		"usecase_avg_seconds":     avg(atomic.LoadInt64(&m.usecaseDuration), usecaseCalls),
		"retrieval_total":         retrievals,
		"retrieval_errors_total":  atomic.LoadUint64(&m.retrievalErrors),
		"retrieval_avg_seconds":   avg(atomic.LoadInt64(&m.retrievalDuration), retrievals),
		"chunks_retrieved_total":  atomic.LoadUint64(&m.chunksRetrieved),
		"llm_calls_total":         llmCalls,
		"llm_call_errors_total":   atomic.LoadUint64(&m.llmCallsErrors),
		"llm_call_avg_seconds":    avg(atomic.LoadInt64(&m.llmCallsDuration), llmCalls),
		"documents_indexed_total": atomic.LoadUint64(&m.documentsIndexed),
		"pages_indexed_total":     atomic.LoadUint64(&m.pagesIndexed),
		"ingest_errors_total":     atomic.LoadUint64(&m.ingestErrors),
		"files_downloaded_total":  atomic.LoadUint64(&m.filesDownloaded),
	}
}
