package processor

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"domusreport/server/config"
	"domusreport/server/internal/database"
	"domusreport/server/internal/models"
	"domusreport/server/internal/queue"
)

// TxRunner runs a function inside a database transaction. *gorm.DB
// satisfies it.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor drains the lead queue into the database with retries.
type BatchProcessor struct {
	db     TxRunner
	logger *logrus.Logger
	config *config.Config
	queue  *queue.LeadQueue
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db TxRunner, queue *queue.LeadQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
	}
}

// Start registers the batch handler and launches the consumer goroutines.
// Leads are inserted, not upserted, so each batch must reach exactly one
// consumer: the handler is subscribed once and the consumers share the
// queue channel.
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(func(batch []*models.Lead) error {
		return p.processBatch(batch)
	})

	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.queue.Start()
	}
}

// Stop gracefully shuts down the processor by closing the queue.
func (p *BatchProcessor) Stop() {
	p.queue.Close()
}

// processBatch handles a single batch of leads with transaction and retry logic
func (p *BatchProcessor) processBatch(batch []*models.Lead) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.InsertLeads(tx, batch); err != nil {
				return fmt.Errorf("failed to insert lead batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d leads", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
