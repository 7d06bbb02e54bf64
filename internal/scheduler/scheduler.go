package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a named unit of background work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs background maintenance jobs (dataset refresh, geocoding
// sweeps) on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers a job with a cron schedule expression.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.WithField("job", job.Name()).Debug("Running job")

		if err := job.Run(); err != nil {
			s.logger.WithError(err).WithField("job", job.Name()).Error("Job failed")
		} else {
			s.logger.WithField("job", job.Name()).Debug("Job completed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"schedule": schedule,
		"job":      job.Name(),
	}).Info("Job registered")

	return nil
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func() error
}

func (j JobFunc) Run() error   { return j.Fn() }
func (j JobFunc) Name() string { return j.JobName }
