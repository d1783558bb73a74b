package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	queue string
	msg   amqp.Publishing
	err   error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.queue = key
	f.msg = msg
	return f.err
}

// settlement records how a delivery was settled.
type settlement struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled map[uint64]settlement
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{settled: make(map[uint64]settlement)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled[tag] = settlement{acked: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled[tag] = settlement{nacked: true, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) get(tag uint64) settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled[tag]
}

type resultHandlerFunc func(ctx context.Context, result model.JobSearchResult) error

func (f resultHandlerFunc) HandleResult(ctx context.Context, result model.JobSearchResult) error {
	return f(ctx, result)
}

func TestPublisher_PublishJobSearch(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "job_search.requests", zerolog.Nop())

	msg := model.JobSearchMessage{
		SearchID:    uuid.New(),
		UserID:      42,
		Keywords:    "golang",
		RequestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishJobSearch(context.Background(), msg))

	assert.Equal(t, "job_search.requests", ch.queue)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, msg.SearchID.String(), ch.msg.MessageId)

	var decoded model.JobSearchMessage
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, msg.SearchID, decoded.SearchID)
	assert.Equal(t, "golang", decoded.Keywords)
}

func TestPublisher_PublishJobSearch_Errors(t *testing.T) {
	brokerErr := errors.New("channel/connection is not open")
	p := newPublisher(&fakeChannel{err: brokerErr}, "q", zerolog.Nop())

	err := p.PublishJobSearch(context.Background(), model.JobSearchMessage{SearchID: uuid.New()})
	assert.ErrorIs(t, err, brokerErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = newPublisher(&fakeChannel{}, "q", zerolog.Nop()).PublishJobSearch(ctx, model.JobSearchMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_SettlesDeliveries(t *testing.T) {
	ack := newFakeAcknowledger()
	transient := errors.New("database unavailable")

	c := &Consumer{
		workers: 2,
		logger:  zerolog.Nop(),
		handler: func(ctx context.Context, body []byte) error {
			switch string(body) {
			case "ok":
				return nil
			case "bad":
				return ErrMalformed
			default:
				return transient
			}
		},
	}

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("retry")}
	close(msgs)

	err := c.serve(context.Background(), msgs)

	// All buffered deliveries are settled before the closed stream is reported.
	require.ErrorIs(t, err, ErrDeliveryClosed)
	assert.Equal(t, settlement{acked: true}, ack.get(1))
	assert.Equal(t, settlement{nacked: true, requeue: false}, ack.get(2))
	assert.Equal(t, settlement{nacked: true, requeue: true}, ack.get(3))
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	c := &Consumer{workers: 1, logger: zerolog.Nop(), handler: func(context.Context, []byte) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, make(chan amqp.Delivery)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestConsumer_ClosedStreamAfterCancelIsClean(t *testing.T) {
	c := &Consumer{workers: 1, logger: zerolog.Nop(), handler: func(context.Context, []byte) error { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := make(chan amqp.Delivery)
	close(msgs)

	assert.NoError(t, c.serve(ctx, msgs))
}

func TestJobSearchResultHandler(t *testing.T) {
	id := uuid.New()
	transient := errors.New("database unavailable")

	tests := []struct {
		name       string
		body       string
		handlerErr error
		malformed  bool
		wantErr    error
	}{
		{
			name: "Valid result",
			body: `{"searchId":"` + id.String() + `","status":"DONE","offersFound":2}`,
		},
		{
			name:      "Not JSON",
			body:      `{"searchId":`,
			malformed: true,
		},
		{
			name:       "Invalid result",
			body:       `{"status":"DONE"}`,
			handlerErr: model.NewValidationError("searchId", "is required"),
			malformed:  true,
		},
		{
			name:       "Transient failure",
			body:       `{"searchId":"` + id.String() + `","status":"DONE"}`,
			handlerErr: transient,
			wantErr:    transient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.JobSearchResult
			h := JobSearchResultHandler(resultHandlerFunc(func(_ context.Context, r model.JobSearchResult) error {
				got = r
				return tt.handlerErr
			}))

			err := h(context.Background(), []byte(tt.body))

			switch {
			case tt.malformed:
				assert.ErrorIs(t, err, ErrMalformed)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotErrorIs(t, err, ErrMalformed)
			default:
				require.NoError(t, err)
				assert.Equal(t, id, got.SearchID)
				assert.Equal(t, 2, got.OffersFound)
			}
		})
	}
}
