package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/logger"

	"github.com/hibiken/asynq"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) opt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// Client enqueues deferred tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg RedisConfig) *Client {
	return &Client{client: asynq.NewClient(cfg.opt())}
}

// EnqueueAt schedules taskType to run at the given time. A non-empty taskID makes
// the call idempotent: re-enqueueing the same id is not an error.
func (c *Client) EnqueueAt(ctx context.Context, taskType string, payload any, at time.Time, taskID string, queue string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	opts := []asynq.Option{asynq.ProcessAt(at), asynq.MaxRetry(5)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	if taskID != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		if stderrors.Is(err, asynq.ErrTaskIDConflict) || stderrors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return err
	}
	logger.Debug("Queue:EnqueueAt", "type", taskType, "id", info.ID, "process_at", at)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Server runs registered task handlers until its context ends.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(cfg RedisConfig, concurrency int) *Server {
	srv := asynq.NewServer(cfg.opt(), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			constants.QueueOffers:  6,
			constants.QueueDefault: 3,
		},
		Logger: asynqLogger{},
	})
	return &Server{srv: srv, mux: asynq.NewServeMux()}
}

func (s *Server) HandleFunc(taskType string, fn func(ctx context.Context, payload []byte) error) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return fn(ctx, t.Payload())
	})
}

func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.srv.Shutdown()
	return nil
}

// Scheduler enqueues periodic tasks from cron specs.
type Scheduler struct {
	s *asynq.Scheduler
}

func NewScheduler(cfg RedisConfig, loc *time.Location) *Scheduler {
	return &Scheduler{s: asynq.NewScheduler(cfg.opt(), &asynq.SchedulerOpts{Location: loc, Logger: asynqLogger{}})}
}

func (s *Scheduler) Register(cronspec, taskType string) error {
	_, err := s.s.Register(cronspec, asynq.NewTask(taskType, nil), asynq.Queue(constants.QueueDefault))
	return err
}

func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.s.Shutdown()
	return nil
}

// asynqLogger routes asynq's internal logging through the service logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug("Asynq", "detail", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info("Asynq", "detail", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn("Asynq", "detail", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error("Asynq", "detail", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { logger.Error("Asynq:Fatal", "detail", fmt.Sprint(args...)) }
