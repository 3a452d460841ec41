// Package metrics 定义了服务的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdfqa"

var (
	// IngestTotal 统计文档入库次数。
	// Labels: result (success, error)
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total number of document ingestions by result",
		},
		[]string{"result"},
	)

	// IngestDuration 统计单个文档从提取到注册的耗时。
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Duration of document ingestion in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks written to vector indexes",
		},
	)

	// OCRPages 统计走 OCR 的页面数。
	OCRPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "ocr_pages_total",
			Help:      "Total number of pages extracted through OCR",
		},
	)

	// DocumentsRegistered 是当前已注册的文档数。
	DocumentsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "documents",
			Help:      "Number of documents currently registered",
		},
	)

	// QuestionsTotal 统计问答次数。
	// Labels: mode (single, all), result (answered, no_result, error)
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qa",
			Name:      "questions_total",
			Help:      "Total number of questions by retrieval mode and result",
		},
		[]string{"mode", "result"},
	)

	// HTTPRequestDuration 统计 HTTP 请求耗时，path 取路由模板而非原始路径。
	// Labels: method, path, status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
