/*
sqldb.go Records mission point samples in MySQL, one row per component,
point and variable.
*/

package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/ohowland/oad_core/internal/pkg/msg"
	"github.com/ohowland/oad_core/internal/pkg/powertrain"
	"go.uber.org/zap"
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
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
	Table    string `json:"Table"`
}

func (h Handler) PID() uuid.UUID {
	return h.pid
}

func redirectMsg(chIn <-chan msg.Msg, chOut chan<- msg.Msg) {
	for m := range chIn {
		chOut <- m
	}
	close(chOut)
}

func New(configPath string, system msg.Publisher, log *zap.Logger) (Handler, error) {
	jsonConfig, err := os.ReadFile(configPath)
	if err != nil {
		return Handler{}, err
	}
	cfg := config{Port: 3306, Table: "points"}
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
	inbox := make(chan msg.Msg, 50)
	go redirectMsg(chPoint, inbox)

	return Handler{
		once:   &sync.Once{},
		inbox:  inbox,
		pid:    pid,
		config: cfg,
		stop:   make(chan struct{}),
		log:    log.With(zap.String("recorder", "mysql")),
	}, nil
}

// Stop ends Process without waiting for the inbox to drain. It never blocks
// and may be called more than once.
func (h Handler) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// dsn is the data source name of the configured server.
func (h Handler) dsn() string {
	c := mysql.NewConfig()
	c.User = h.config.Username
	c.Passwd = h.config.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%v:%v", h.config.Server, h.config.Port)
	c.DBName = h.config.Database
	c.Timeout = 5 * time.Second
	return c.FormatDSN()
}

func (h Handler) getDB() (*sql.DB, error) {
	return sql.Open("mysql", h.dsn())
}

func createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run VARCHAR(64) NOT NULL,
	component VARCHAR(64) NOT NULL,
	point INT NOT NULL,
	time DOUBLE NOT NULL,
	phase VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL,
	branch VARCHAR(32) NOT NULL,
	variable VARCHAR(64) NOT NULL,
	unit VARCHAR(16) NOT NULL,
	value DOUBLE NOT NULL,
	PRIMARY KEY (run, component, point, variable))`, table)
}

func insertRow(table string) string {
	return fmt.Sprintf(`REPLACE INTO %s
	(run, component, point, time, phase, status, branch, variable, unit, value)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
}

// rows flattens a point record into insert arguments, one row per variable.
func rows(rec powertrain.PointRecord) [][]interface{} {
	out := make([][]interface{}, 0, len(rec.Variables))
	for _, v := range rec.Variables {
		out = append(out, []interface{}{
			rec.Run, rec.Component, rec.Index, rec.Time, string(rec.Phase),
			rec.Status, rec.Branch, v.Name, v.Unit, v.Value,
		})
	}
	return out
}

func initDB(ctx context.Context, db *sql.DB, table string) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, createTable(table))
	return err
}

// writeRecord inserts every row of rec in one transaction, so a point is
// stored whole or not at all.
func writeRecord(ctx context.Context, db *sql.DB, statement string, rec powertrain.PointRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, args := range rows(rec) {
		if _, err := tx.ExecContext(ctx, statement, args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Process writes inbox messages until the subscription ends or Stop is
// called. Without a database messages are drained and dropped.
func (h Handler) Process() {
	db, err := h.getDB()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = initDB(ctx, db, h.config.Table)
		cancel()
	}
	if err != nil {
		h.log.Error("unable to open database", zap.String("server", h.config.Server), zap.Error(err))
		if db != nil {
			db.Close()
		}
		db = nil
	} else {
		defer db.Close()
	}

	statement := insertRow(h.config.Table)
loop:
	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				break loop
			}
			rec, ok := m.Payload().(powertrain.PointRecord)
			if !ok || db == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			if err := writeRecord(ctx, db, statement, rec); err != nil {
				h.log.Warn("insert failed", zap.String("component", rec.Component), zap.Int("point", rec.Index), zap.Error(err))
			}
			cancel()

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
