package features

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"intervia/pkg/event"
)

type EvaluationJob struct {
	Envelope   *event.Envelope
	Answer     event.AnswerSubmitted
	EnqueuedAt time.Time
}

// EvaluationWorkerPool bounds the number of concurrent model calls made by
// the answer-evaluation consumer. Jobs that cannot be enqueued within
// maxTaskWaitTime are rejected back to the caller.
type EvaluationWorkerPool struct {
	jobQueue        chan EvaluationJob
	workerCount     int
	maxTaskWaitTime time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	// Metrics
	totalJobsEnqueued  int64
	totalJobsProcessed int64
	totalJobsDropped   int64
	activeWorkers      int64
}

func NewEvaluationWorkerPool(size, maxTasksPerWorker, maxTaskWaitTime int) *EvaluationWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &EvaluationWorkerPool{
		jobQueue:        make(chan EvaluationJob, size*maxTasksPerWorker),
		workerCount:     size,
		maxTaskWaitTime: time.Duration(maxTaskWaitTime) * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (wp *EvaluationWorkerPool) Start(evaluator *Evaluator) {
	evaluator.logger.Info("Starting evaluation worker pool",
		zap.Int("workerCount", wp.workerCount),
		zap.Int("queueCapacity", cap(wp.jobQueue)))

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(evaluator, i)
	}
}

func (wp *EvaluationWorkerPool) Stop() {
	wp.cancel()
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *EvaluationWorkerPool) worker(evaluator *Evaluator, workerID int) {
	defer wp.wg.Done()
	atomic.AddInt64(&wp.activeWorkers, 1)
	defer atomic.AddInt64(&wp.activeWorkers, -1)

	jobsProcessed := 0

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				evaluator.logger.Info("Worker stopping - job queue closed",
					zap.Int("workerID", workerID),
					zap.Int("jobsProcessed", jobsProcessed))
				return
			}

			waitTime := time.Since(job.EnqueuedAt)
			evaluator.logger.Debug("Worker processing job",
				zap.Int("workerID", workerID),
				zap.String("interviewId", job.Answer.InterviewID),
				zap.String("questionId", job.Answer.QuestionID),
				zap.Duration("waitTime", waitTime))

			startTime := time.Now()
			evaluator.Process(wp.ctx, job)
			processingTime := time.Since(startTime)

			atomic.AddInt64(&wp.totalJobsProcessed, 1)
			jobsProcessed++

			evaluator.logger.Debug("Worker completed job",
				zap.Int("workerID", workerID),
				zap.String("interviewId", job.Answer.InterviewID),
				zap.String("questionId", job.Answer.QuestionID),
				zap.Duration("processingTime", processingTime))

		case <-wp.ctx.Done():
			evaluator.logger.Info("Worker stopping - context cancelled",
				zap.Int("workerID", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			return
		}
	}
}

func (wp *EvaluationWorkerPool) Enqueue(logger *zap.Logger, job EvaluationJob) bool {
	job.EnqueuedAt = time.Now()

	select {
	case wp.jobQueue <- job:
		atomic.AddInt64(&wp.totalJobsEnqueued, 1)
		logger.Debug("Enqueued evaluation job",
			zap.String("interviewId", job.Answer.InterviewID),
			zap.String("questionId", job.Answer.QuestionID),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int("queueCapacity", cap(wp.jobQueue)))
		return true

	case <-time.After(wp.maxTaskWaitTime):
		atomic.AddInt64(&wp.totalJobsDropped, 1)
		logger.Warn("Evaluation queue saturated, rejecting job",
			zap.String("interviewId", job.Answer.InterviewID),
			zap.String("questionId", job.Answer.QuestionID),
			zap.Duration("timeout", wp.maxTaskWaitTime),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int64("activeWorkers", atomic.LoadInt64(&wp.activeWorkers)))
		return false
	}
}

// GetMetrics returns worker pool metrics
func (wp *EvaluationWorkerPool) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"total_jobs_enqueued":  atomic.LoadInt64(&wp.totalJobsEnqueued),
		"total_jobs_processed": atomic.LoadInt64(&wp.totalJobsProcessed),
		"total_jobs_dropped":   atomic.LoadInt64(&wp.totalJobsDropped),
		"active_workers":       atomic.LoadInt64(&wp.activeWorkers),
		"queue_size":           len(wp.jobQueue),
		"queue_capacity":       cap(wp.jobQueue),
	}
}
