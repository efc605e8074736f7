package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"litqa/internal/model"
)

// HistoryAppender is the bounded history store the worker writes into.
type HistoryAppender interface {
	Append(ctx context.Context, record *model.QARecord) error
}

// HistoryPersistWorker drains the history queue with a single consumer, so
// appends for one user reach the store in publish order.
type HistoryPersistWorker struct {
	conn      *amqp.Connection
	store     HistoryAppender
	queueName string
	logger    *zap.Logger

	// OnPersisted runs after a record has been stored.
	OnPersisted func(ctx context.Context, userID uint)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHistoryPersistWorker(conn *amqp.Connection, store HistoryAppender, queueName string, logger *zap.Logger) *HistoryPersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryPersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger.Named("history_worker"),
	}
}

func (w *HistoryPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.logger.Error("persist history record failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("history worker started", zap.String("queue", w.queueName))
	return nil
}

// Handle decodes one queued record and appends it to the store.
func (w *HistoryPersistWorker) Handle(ctx context.Context, body []byte) error {
	var record model.QARecord
	if err := json.Unmarshal(body, &record); err != nil {
		return fmt.Errorf("decode history record failed: %w", err)
	}
	if record.UserID == 0 {
		return fmt.Errorf("decode history record failed: missing user id")
	}
	if err := w.store.Append(ctx, &record); err != nil {
		return err
	}
	if w.OnPersisted != nil {
		w.OnPersisted(ctx, record.UserID)
	}
	w.logger.Debug("history record persisted", zap.Uint("user_id", record.UserID), zap.Uint("id", record.ID))
	return nil
}

func (w *HistoryPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
