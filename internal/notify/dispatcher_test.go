package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ariefcatur/holycat-orders/internal/notify"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDedup struct {
	seen map[string]bool
}

func (d *memDedup) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	k := scope + ":" + id
	if d.seen[k] {
		return false, nil
	}
	d.seen[k] = true
	return true, nil
}

func (d *memDedup) Forget(ctx context.Context, scope, id string) error {
	delete(d.seen, scope+":"+id)
	return nil
}

type fakeMailer struct {
	sent []notify.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// encode runs a notification through the Kafka notifier to get the wire bytes.
func encode(t *testing.T, n orders.Notification) kafkago.Message {
	t.Helper()
	pub := &fakePublisher{}
	require.NoError(t, notify.NewKafka(pub, "test").Notify(context.Background(), n))
	return kafkago.Message{Key: pub.msgs[0].key, Value: pub.msgs[0].value}
}

func newDispatcher(m *fakeMailer) (*notify.Dispatcher, *memDedup) {
	d := &memDedup{seen: map[string]bool{}}
	return notify.NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), d, m), d
}

func TestDispatcher_SendsOncePerEvent(t *testing.T) {
	mailer := &fakeMailer{}
	d, _ := newDispatcher(mailer)
	msg := encode(t, shipped())

	require.NoError(t, d.Handle(context.Background(), msg))
	require.NoError(t, d.Handle(context.Background(), msg))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "cat@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "Telah Dikirim")
	assert.Contains(t, mailer.sent[0].Body, "JNE123")
}

func TestDispatcher_PackedSendsNothing(t *testing.T) {
	mailer := &fakeMailer{}
	d, dedup := newDispatcher(mailer)
	n := shipped()
	n.Order.Status = orders.StatusPacked

	require.NoError(t, d.Handle(context.Background(), encode(t, n)))
	assert.Empty(t, mailer.sent)
	assert.Empty(t, dedup.seen)
}

func TestDispatcher_FailedSendIsRetried(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	d, _ := newDispatcher(mailer)
	msg := encode(t, shipped())

	assert.Error(t, d.Handle(context.Background(), msg))

	mailer.err = nil
	require.NoError(t, d.Handle(context.Background(), msg))
	assert.Len(t, mailer.sent, 1)
}

func TestDispatcher_DropsGarbage(t *testing.T) {
	mailer := &fakeMailer{}
	d, _ := newDispatcher(mailer)
	assert.NoError(t, d.Handle(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.Empty(t, mailer.sent)
}

func TestCompose(t *testing.T) {
	cases := map[orders.Status]string{
		orders.StatusAwaitingPayment: "Menunggu Pembayaran",
		orders.StatusProcessing:      "Sedang Diproses",
		orders.StatusShipped:         "Telah Dikirim",
		orders.StatusCompleted:       "Selesai",
		orders.StatusCancelled:       "Dibatalkan",
	}
	for status, want := range cases {
		p := shipped().Payload()
		p.To = status
		m, ok := notify.Compose(p)
		require.True(t, ok, status)
		assert.Contains(t, m.Subject, want)
		assert.Contains(t, m.Subject, p.OrderID)
		assert.Contains(t, m.Body, "Halo Cat")
	}

	p := shipped().Payload()
	p.To = orders.StatusPacked
	_, ok := notify.Compose(p)
	assert.False(t, ok)
}
