// Package worker provides a NATS worker that processes voice cloning jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// QueueGroup lets several service instances share the job subject.
const QueueGroup = "voice-cloner"

const defaultJobTimeout = 15 * time.Minute

var (
	// ErrNoSampleKeys indicates that a job referenced no samples.
	ErrNoSampleKeys = errors.New("job has no sample keys")
	// ErrSubjectEmpty indicates that no subject was configured.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
)

// Cloner runs a clone request.
type Cloner interface {
	Clone(ctx context.Context, req core.CloneRequest) (*core.Clip, error)
}

// CloneJobEvent asks the worker to clone the voice in SampleKeys. The samples
// must already be in the clip store.
type CloneJobEvent struct {
	Header     events.EventHeader `json:"header"`
	SampleKeys []string           `json:"sample_keys"`
	Text       string             `json:"text"`
	Preset     string             `json:"preset,omitempty"`
}

// ClipCreatedEvent is the reply to a CloneJobEvent. On failure ClipKey is empty
// and ErrorKind and Error describe what went wrong.
type ClipCreatedEvent struct {
	Header          events.EventHeader `json:"header"`
	ClipID          string             `json:"clip_id,omitempty"`
	ClipKey         string             `json:"clip_key,omitempty"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	SampleRate      int                `json:"sample_rate,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	ErrorKind       string             `json:"error_kind,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// NatsWorker listens for clone jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ClipStore
	cloner         Cloner
	jobTimeout     time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. A zero jobTimeout
// uses the default.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ClipStore,
	cloner Cloner,
	jobTimeout time.Duration,
	log *logger.Logger,
) (*NatsWorker, error) {
	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		cloner:         cloner,
		jobTimeout:     jobTimeout,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.QueueSubscribe(w.subject, QueueGroup, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for clone jobs on %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse clone job: %v", err)
		w.reply(msg, failureEvent(events.EventHeader{}, core.NewError(core.KindInvalidInput, "parse job", err)))

		return
	}

	clip, processErr := w.processCloneJob(ctx, event)
	if processErr != nil {
		w.log.Error("Clone job for workflow %s failed (%s): %v",
			event.Header.WorkflowID, core.KindOf(processErr), processErr)
		w.reply(msg, failureEvent(event.Header, processErr))

		return
	}

	w.log.Info("Clone job for workflow %s produced %s", event.Header.WorkflowID, clip.Key)

	w.reply(msg, &ClipCreatedEvent{
		Header:          replyHeader(event.Header),
		ClipID:          clip.ID,
		ClipKey:         clip.Key,
		DurationSeconds: clip.Duration.Seconds(),
		SampleRate:      clip.SampleRate,
		Warnings:        clip.Warnings,
	})
}

// processCloneJob downloads the samples named by the event and clones them.
func (w *NatsWorker) processCloneJob(ctx context.Context, event *CloneJobEvent) (*core.Clip, error) {
	if len(event.SampleKeys) == 0 {
		return nil, core.NewError(core.KindInvalidInput, "read job", ErrNoSampleKeys)
	}

	samples := make([]core.Sample, 0, len(event.SampleKeys))

	for _, key := range event.SampleKeys {
		data, err := w.store.Download(ctx, key)
		if err != nil {
			kind := core.KindResourceUnavailable
			if errors.Is(err, core.ErrClipNotFound) {
				kind = core.KindInvalidInput
			}

			return nil, core.NewError(kind, "download sample",
				fmt.Errorf("failed to download sample '%s': %w", key, err))
		}

		samples = append(samples, core.Sample{Filename: key, Data: data})
	}

	return w.cloner.Clone(ctx, core.CloneRequest{
		Samples: samples,
		Text:    event.Text,
		Preset:  core.Preset(event.Preset),
	})
}

func (w *NatsWorker) reply(msg *nats.Msg, replyEvent *ClipCreatedEvent) {
	if msg.Reply == "" {
		return
	}

	err := publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", replyEvent.Header.WorkflowID, err)
	}
}

// publishReplyEvent marshals and responds with the ClipCreatedEvent.
func publishReplyEvent(msg *nats.Msg, replyEvent *ClipCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*CloneJobEvent, error) {
	var event CloneJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

func failureEvent(header events.EventHeader, err error) *ClipCreatedEvent {
	return &ClipCreatedEvent{
		Header:    replyHeader(header),
		ErrorKind: string(core.KindOf(err)),
		Error:     err.Error(),
	}
}

// replyHeader keeps the workflow and tenant of the job under a new event id.
func replyHeader(header events.EventHeader) events.EventHeader {
	return events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: header.WorkflowID,
		EventID:    uuid.NewString(),
		UserID:     header.UserID,
		TenantID:   header.TenantID,
	}
}
