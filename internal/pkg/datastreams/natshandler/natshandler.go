/*
natshandler.go Streams mission point samples to a NATS server. Every point
record is published as JSON on subject oad.<run>.<component>, summaries on
oad.<run>.summary.
*/

package natshandler

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"go.uber.org/zap"

	nats "github.com/nats-io/nats.go"
)

// SubjectPrefix roots every published subject.
const SubjectPrefix = "oad"

type Handler struct {
	once   *sync.Once
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan struct{}
	log    *zap.Logger
}

type config struct {
	Server string `json:"Server"`
	Name   string `json:"Name"`
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// redirectMsg copies every subscription into the inbox, closing it when all
// subscriptions have ended.
func redirectMsg(chIn []<-chan msg.Msg, chOut chan<- msg.Msg) {
	var wg sync.WaitGroup
	for _, ch := range chIn {
		wg.Add(1)
		go func(ch <-chan msg.Msg) {
			defer wg.Done()
			for m := range ch {
				chOut <- m
			}
		}(ch)
	}
	wg.Wait()
	close(chOut)
}

func New(configPath string, system msg.Publisher, log *zap.Logger) (Handler, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{Server: nats.DefaultURL, Name: "oad"}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pid := uuid.New()

	chPoint, err := system.Subscribe(pid, msg.Point)
	if err != nil {
		return Handler{}, err
	}
	chSummary, err := system.Subscribe(pid, msg.Summary)
	if err != nil {
		system.Unsubscribe(pid)
		return Handler{}, err
	}

	inbox := make(chan msg.Msg, 50)
	go redirectMsg([]<-chan msg.Msg{chPoint, chSummary}, inbox)

	return Handler{
		once:   &sync.Once{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan struct{}),
		log:    log.With(zap.String("recorder", "nats")),
	}, nil
}

// Subject is the subject a record is published on.
func Subject(run, component string) string {
	return strings.Join([]string{SubjectPrefix, token(run), token(component)}, ".")
}

// token keeps a name from splitting or wildcarding a subject.
func token(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

// encode returns the subject and body of a message.
func encode(m msg.Msg) (string, []byte, bool) {
	var subject string
	switch rec := m.Payload().(type) {
	case powertrain.PointRecord:
		subject = Subject(rec.Run, rec.Component)
	case powertrain.SummaryRecord:
		subject = Subject(rec.Run, "summary")
	default:
		return "", nil, false
	}
	data, err := json.Marshal(m.Payload())
	if err != nil {
		return "", nil, false
	}
	return subject, data, true
}

// Stop ends Process without waiting for the inbox to drain. It never blocks
// and may be called more than once.
func (h Handler) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// Process publishes inbox messages until the subscriptions end or Stop is
// called. Without a server connection messages are drained and dropped.
func (h Handler) Process() {
	h.log.Info("process started", zap.String("server", h.config.Server))
	nc, err := nats.Connect(h.config.Server, nats.Name(h.config.Name))
	if err != nil {
		h.log.Error("unable to connect to nats server", zap.Error(err))
	} else {
		defer nc.Close()
	}

loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if nc == nil {
				continue
			}
			subject, data, ok := encode(m)
			if !ok {
				continue
			}
			if err = nc.Publish(subject, data); err != nil {
				h.log.Warn("unable to publish to nats server", zap.String("subject", subject), zap.Error(err))
			}

		case <-h.stop:
			break loop
		}
	}
	// a stopped recorder keeps the publisher from blocking
	go func() {
		for range h.inbox {
		}
	}()
	if nc != nil {
		if err := nc.Flush(); err != nil {
			h.log.Warn("flush failed", zap.Error(err))
		}
	}
	h.log.Info("process shutdown")
}
