package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eventscout/internal/domain"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func deliveryFor(t *testing.T, job domain.EnrichJob, ack amqp.Acknowledger) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("сериализация задачи: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestReceiveJobAckConfirmsDelivery(t *testing.T) {
	ackRec := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- deliveryFor(t, domain.EnrichJob{ID: "j1", EventIDs: []int64{1, 2}}, ackRec)

	job, ack, err := receiveJob(context.Background(), deliveries)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if job.ID != "j1" || len(job.EventIDs) != 2 {
		t.Fatalf("задача = %+v", job)
	}
	if err := ack(true); err != nil {
		t.Fatalf("подтверждение: %v", err)
	}
	if !ackRec.acked || ackRec.nacked {
		t.Fatalf("ожидался ack, получено %+v", ackRec)
	}
}

func TestReceiveJobFailureRequeues(t *testing.T) {
	ackRec := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- deliveryFor(t, domain.EnrichJob{ID: "j2"}, ackRec)

	_, ack, err := receiveJob(context.Background(), deliveries)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if err := ack(false); err != nil {
		t.Fatalf("возврат в очередь: %v", err)
	}
	if !ackRec.nacked || !ackRec.requeue {
		t.Fatalf("ожидался nack с requeue, получено %+v", ackRec)
	}
}

func TestReceiveJobDropsMalformedBody(t *testing.T) {
	ackRec := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ackRec, Body: []byte("{broken")}

	_, _, err := receiveJob(context.Background(), deliveries)
	if err == nil {
		t.Fatal("битое тело должно отклоняться")
	}
	if !ackRec.nacked || ackRec.requeue {
		t.Fatalf("битое сообщение не должно возвращаться в очередь: %+v", ackRec)
	}
}

func TestReceiveJobHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := receiveJob(ctx, make(chan amqp.Delivery))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ошибка = %v", err)
	}
}

func TestReceiveJobClosedChannel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	_, _, err := receiveJob(context.Background(), deliveries)
	if err == nil {
		t.Fatal("закрытый канал доставки должен быть ошибкой")
	}
}
