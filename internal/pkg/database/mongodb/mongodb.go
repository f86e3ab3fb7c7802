/*
mongodb.go Records sizing reports and evaluation summaries in MongoDB. Both
are upserted, so re-running a power train replaces its previous documents.
*/

package mongodb

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections written by the handler.
const (
	SizingCollection  = "sizing"
	SummaryCollection = "summary"
)

type Handler struct {
	once   *sync.Once
	inbox  <-chan msg.Msg
	pid    uuid.UUID
	config config
	stop   chan struct{}
	log    *zap.Logger
}

type config struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
	Port     string `json:"Port"`
	Timeout  int    `json:"Timeout"` // seconds per operation
}

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
	cfg := config{Timeout: 5}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Handler{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pid := uuid.New()

	chSizing, err := system.Subscribe(pid, msg.Sizing)
	if err != nil {
		return Handler{}, err
	}
	chSummary, err := system.Subscribe(pid, msg.Summary)
	if err != nil {
		system.Unsubscribe(pid)
		return Handler{}, err
	}

	inbox := make(chan msg.Msg, 50)
	go redirectMsg([]<-chan msg.Msg{chSizing, chSummary}, inbox)

	return Handler{
		once:   &sync.Once{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan struct{}),
		log:    log.With(zap.String("recorder", "mongodb")),
	}, nil
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

// document is one upsert: the target collection, its filter and update.
type document struct {
	collection string
	filter     bson.M
	update     bson.D
}

// msgToBSON keys sizing documents by run and component pid, summaries by run.
func msgToBSON(m msg.Msg) (document, bool) {
	switch rec := m.Payload().(type) {
	case powertrain.SizingRecord:
		return document{
			collection: SizingCollection,
			filter:     bson.M{"run": rec.Run, "pid": m.PID().String()},
			update:     bson.D{{Key: "$set", Value: rec}},
		}, true
	case powertrain.SummaryRecord:
		return document{
			collection: SummaryCollection,
			filter:     bson.M{"run": rec.Run},
			update: bson.D{{Key: "$set", Value: bson.M{
				"pid":  m.PID().String(),
				"data": rec,
			}}},
		}, true
	}
	return document{}, false
}

// Stop ends Process without waiting for the inbox to drain. It never blocks
// and may be called more than once.
func (h Handler) Stop() {
	h.once.Do(func() { close(h.stop) })
}

func (h Handler) uri() string {
	if h.config.Port == "" {
		return h.config.URI
	}
	return h.config.URI + ":" + h.config.Port
}

// Process upserts inbox messages until the subscriptions end or Stop is
// called.
func (h Handler) Process() {
	timeout := time.Duration(h.config.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.uri()))
	cancel()
	if err != nil {
		h.log.Error("unable to connect to mongodb", zap.String("uri", h.config.URI), zap.Error(err))
		client = nil
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				h.log.Warn("disconnect failed", zap.Error(err))
			}
		}()
	}

loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			if client == nil {
				continue
			}
			doc, ok := msgToBSON(m)
			if !ok {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			_, err := client.Database(h.config.Database).Collection(doc.collection).UpdateOne(
				ctx,
				doc.filter,
				doc.update,
				options.Update().SetUpsert(true),
			)
			cancel()
			if err != nil {
				h.log.Warn("upsert failed", zap.String("collection", doc.collection), zap.Error(err))
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
	h.log.Info("process shutdown")
}
