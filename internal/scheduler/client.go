package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"lead_router_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	leadRouteMaxRetry = 5
	// leadRouteDedupWindow keeps repeated enqueues for one lead from piling up.
	leadRouteDedupWindow = 10 * time.Minute
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	client enqueuer
	closer func() error
	queue  string
}

// LeadRouter schedules background routing for a lead.
type LeadRouter interface {
	EnqueueLeadRoute(ctx context.Context, leadID uuid.UUID, actor string) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &Client{
		client: client,
		closer: client.Close,
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// EnqueueLeadRoute queues an auto-assign run for the lead. A run that is
// already queued for the same lead is not duplicated.
func (c *Client) EnqueueLeadRoute(ctx context.Context, leadID uuid.UUID, actor string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadRouteTask(LeadRoutePayload{LeadID: leadID.String(), Actor: actor})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(leadRouteMaxRetry),
		asynq.Unique(leadRouteDedupWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
