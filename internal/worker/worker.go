package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/mq"
)

const defaultPrefetch = 1

// ImportRunner выполняет импорт. Реализуется publish.Importer.
type ImportRunner interface {
	Import(ctx context.Context, req *domain.ImportRequest) (int64, error)
}

// Worker выполняет асинхронные импорты.
//
// Worker — stateless компонент, который:
//   - Получает запросы из очереди imports.requested
//   - Выполняет импорт тем же координатором, что и API
//   - Отправляет в DLQ запросы, которые нельзя повторить
//
// Workers масштабируются горизонтально: несколько экземпляров
// могут потреблять из одной очереди.
type Worker struct {
	importer ImportRunner
	conn     *mq.Connection
	consumer *mq.Consumer
	prefetch int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Importer ImportRunner
	Conn     *mq.Connection

	// Prefetch — сколько запросов брать из очереди одновременно (default: 1).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		importer: cfg.Importer,
		conn:     cfg.Conn,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Start запускает consumer очереди imports.requested.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "queue", mq.QueueImportsRequested, "prefetch", w.prefetch)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    mq.QueueImportsRequested,
		Handler:  w.handleImportRequested,
		Prefetch: w.prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("import consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущего импорта.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
