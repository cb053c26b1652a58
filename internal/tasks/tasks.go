package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"hena/stays/internal/email"
	"hena/stays/internal/ingest"
	"hena/stays/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeFeedsRefresh  = "feeds:refresh"
)

// refreshUniqueTTL keeps a second refresh tick from queueing while one is still waiting or running.
const refreshUniqueTTL = 55 * time.Minute

// --- Task Client (Enqueuing tasks) ---

// Enqueuer is the part of *asynq.Client used to schedule work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// NewEmailDeliveryTask wraps msg in an email:deliver task.
func NewEmailDeliveryTask(msg email.Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload, asynq.Queue("critical"), asynq.MaxRetry(5)), nil
}

// EnqueueFeedsRefresh schedules a refresh of approved feeds. It reports false
// without an error when a refresh is already queued.
func EnqueueFeedsRefresh(ctx context.Context, client Enqueuer) (bool, error) {
	task := asynq.NewTask(TypeFeedsRefresh, nil, asynq.MaxRetry(1), asynq.Timeout(50*time.Minute))
	_, err := client.EnqueueContext(ctx, task, asynq.Unique(refreshUniqueTTL))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s: %w", TypeFeedsRefresh, err)
	}
	return true, nil
}

// QueueDispatcher delivers emails through the email:deliver task instead of inline.
type QueueDispatcher struct {
	client Enqueuer
}

func NewQueueDispatcher(client Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg email.Message) error {
	task, err := NewEmailDeliveryTask(msg)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s email to %s: %w", msg.TemplateID, msg.To, err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// FeedRefresher re-imports approved feeds.
type FeedRefresher interface {
	RefreshApproved(ctx context.Context) (ingest.RefreshSummary, error)
}

// TaskProcessor holds the dependencies task handlers need.
type TaskProcessor struct {
	deliverer email.Dispatcher
	feeds     FeedRefresher
}

// NewTaskProcessor creates a processor. deliverer must send inline; handing
// it a QueueDispatcher would requeue every email forever.
func NewTaskProcessor(deliverer email.Dispatcher, feeds FeedRefresher) *TaskProcessor {
	return &TaskProcessor{deliverer: deliverer, feeds: feeds}
}

// SetupServer configures an Asynq server. Call Run with NewServeMux to start it.
func SetupServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)
}

// NewServeMux routes every task type to its handler.
func NewServeMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeFeedsRefresh, processor.HandleFeedsRefreshTask)
	return mux
}

// --- Task Handlers ---

// HandleEmailDeliveryTask renders and sends one queued email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var msg email.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" || msg.TemplateID == "" {
		return fmt.Errorf("email task without recipient or template: %w", asynq.SkipRetry)
	}

	log.Printf("Sending email task: To=%s, Template=%s", msg.To, msg.TemplateID)
	if err := p.deliverer.Dispatch(ctx, msg); err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			log.Printf("Dropping email to %s: %v", msg.To, err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	log.Printf("Email task processed successfully: To=%s, Template=%s", msg.To, msg.TemplateID)
	return nil
}

// HandleFeedsRefreshTask runs one scheduler pass over approved feeds.
func (p *TaskProcessor) HandleFeedsRefreshTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Starting approved feed refresh task...")
	summary, err := p.feeds.RefreshApproved(ctx)
	if err != nil {
		log.Printf("Feed refresh aborted after %d feeds: %v", summary.Checked, err)
		return err
	}
	return nil
}
