//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Subscription is one listener attached to a channel.
// Only events whose name has been bound are delivered on Events.
type Subscription interface {
	Channel() domain.Channel
	Bind(name string)
	Unbind(name string)
	Events() <-chan event.Event
	Close() error
}

// Subscriber opens subscriptions on named channels.
// Implemented by the in-process hub and by the remote websocket client.
type Subscriber interface {
	Subscribe(ctx context.Context, channel domain.Channel) (Subscription, error)
}

type IRegistry interface {
	Add(sub Subscription) bool
	Remove(sub Subscription) bool
	Subscriptions(channel domain.Channel) []Subscription
	Count(channel domain.Channel) int
}

// IModerator censors text content and detects its language.
type IModerator interface {
	Inspect(content string) moderation.Verdict
}

// Publisher hands a domain event to the delivery pipeline without blocking.
type Publisher interface {
	Publish(evt event.DomainEvent)
}

type IOrchestrator interface {
	Publisher
	Start(ctx context.Context) error
	Stop()
}
