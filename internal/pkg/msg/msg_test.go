package msg

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"
)

func TestSubscribe(t *testing.T) {
	pidPub, err := uuid.NewUUID()
	assert.NilError(t, err)

	pidSub1, err := uuid.NewUUID()
	assert.NilError(t, err)

	pidSub2, err := uuid.NewUUID()
	assert.NilError(t, err)

	pubsub := NewPublisher(pidPub)
	ch1, err := pubsub.Subscribe(pidSub1, Point)
	assert.NilError(t, err)
	ch2, err := pubsub.Subscribe(pidSub2, Point)
	assert.NilError(t, err)

	wg := &sync.WaitGroup{}
	got := make([]interface{}, 2)
	for i, ch := range []<-chan Msg{ch1, ch2} {
		wg.Add(1)
		go func(i int, ch <-chan Msg) {
			defer wg.Done()
			incoming := <-ch
			got[i] = incoming.Payload()
		}(i, ch)
	}

	pubsub.Publish(Point, 42.0)
	wg.Wait()
	assert.DeepEqual(t, got, []interface{}{42.0, 42.0})
}

func TestTopicsAreSeparate(t *testing.T) {
	pubsub := NewPublisher(uuid.New())
	sub := uuid.New()
	chSizing, err := pubsub.Subscribe(sub, Sizing)
	assert.NilError(t, err)
	chSummary, err := pubsub.Subscribe(sub, Summary)
	assert.NilError(t, err)

	pubsub.Publish(Summary, "done")
	pubsub.Publish(Point, "dropped")

	m := <-chSummary
	assert.Equal(t, m.Topic(), Summary)
	assert.Equal(t, m.PID(), pubsub.PID())
	assert.Equal(t, len(chSizing), 0)
}

func TestDuplicateSubscription(t *testing.T) {
	pubsub := NewPublisher(uuid.New())
	sub := uuid.New()
	_, err := pubsub.Subscribe(sub, Point)
	assert.NilError(t, err)
	_, err = pubsub.Subscribe(sub, Point)
	assert.ErrorContains(t, err, "already subscribed to point")
}

func TestUnsubscribe(t *testing.T) {
	pubsub := NewPublisher(uuid.New())
	sub := uuid.New()
	ch, _ := pubsub.Subscribe(sub, Point)

	pubsub.Unsubscribe(sub)
	_, ok := <-ch
	assert.Assert(t, !ok)

	pubsub.Publish(Point, 1)
	_, err := pubsub.Subscribe(sub, Point)
	assert.NilError(t, err)
}

func TestForwardKeepsSender(t *testing.T) {
	pubsub := NewPublisher(uuid.New())
	ch, _ := pubsub.Subscribe(uuid.New(), Sizing)

	origin := uuid.New()
	pubsub.Forward(New(origin, Sizing, "report"))
	m := <-ch
	assert.Equal(t, m.PID(), origin)
	assert.Equal(t, m.Payload(), "report")
}

func TestClose(t *testing.T) {
	pubsub := NewPublisher(uuid.New())
	ch, _ := pubsub.Subscribe(uuid.New(), Point)
	pubsub.Publish(Point, 1)
	pubsub.Close()

	m, ok := <-ch
	assert.Assert(t, ok)
	assert.Equal(t, m.Payload(), 1)
	_, ok = <-ch
	assert.Assert(t, !ok)

	_, err := pubsub.Subscribe(uuid.New(), Point)
	assert.ErrorContains(t, err, "closed")
	pubsub.Publish(Point, 2)
}
