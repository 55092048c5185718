package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gastos/internal/amqp"
	"gastos/internal/config"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
	"gastos/internal/services"
)

type fakePublisher struct {
	msgs   []*amqp.RecordChangedMessage
	closed bool
}

func (p *fakePublisher) PublishRecordChanged(_ context.Context, msg *amqp.RecordChangedMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func newTestFactory(dial func(string, string, string, *applog.Logger) (services.Publisher, error)) *DefaultFactory {
	f := NewFactory(applog.Discard()).(*DefaultFactory)
	if dial != nil {
		f.dial = dial
	}
	return f
}

func TestCreateBackend_Memory(t *testing.T) {
	f := newTestFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Syncing || res.Cleanup != nil {
		t.Errorf("memory backend should not sync or need cleanup: %+v", res)
	}
	if err := res.Backend.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	f := newTestFactory(nil)
	path := filepath.Join(t.TempDir(), "gastos.db")
	res, err := f.CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	ctx := context.Background()
	if err := res.Backend.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	cat := core.Category{ID: "c1", Name: "Casa", Color: "#000000"}
	if err := res.Backend.Apply(ctx, "u1", persistence.ChangeSet{PutCategories: []core.Category{cat}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	snap, err := res.Backend.Load(ctx, "u1")
	if err != nil || len(snap.Categories) != 1 {
		t.Fatalf("Load = %+v, %v", snap, err)
	}
}

func TestCreateBackend_WrapsWithPublisher(t *testing.T) {
	pub := &fakePublisher{}
	f := newTestFactory(func(string, string, string, *applog.Logger) (services.Publisher, error) {
		return pub, nil
	})
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         MemoryBackend,
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "gastos",
		AMQPQueue:    "ledger_changes",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if !res.Syncing {
		t.Fatal("expected syncing backend")
	}

	cs := persistence.ChangeSet{PutAccounts: []core.Account{{ID: "a1", Name: "General", Default: true}}}
	if err := res.Backend.Apply(context.Background(), "u1", cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Kind != persistence.KindAccount {
		t.Errorf("expected one account message, got %+v", pub.msgs)
	}
	if err := res.Cleanup(); err != nil || !pub.closed {
		t.Errorf("cleanup should close the publisher: err=%v closed=%v", err, pub.closed)
	}
}

func TestCreateBackend_BrokerDownRunsWithoutSync(t *testing.T) {
	f := newTestFactory(func(string, string, string, *applog.Logger) (services.Publisher, error) {
		return nil, errors.New("connection refused")
	})
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         MemoryBackend,
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "gastos",
		AMQPQueue:    "ledger_changes",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Syncing {
		t.Error("backend should run without sync when the broker is unreachable")
	}
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	f := newTestFactory(nil)
	tests := []Config{
		{Type: "sheets"},
		{Type: SQLiteBackend},
		{Type: MemoryBackend, AMQPURL: "amqp://localhost/"},
	}
	for _, cfg := range tests {
		if _, err := f.CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	app := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPExchange: "gastos", AMQPQueue: "q"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.AMQPURL != "" || cfg.AMQPQueue != "" {
		t.Errorf("unexpected backend config without AMQP: %+v", cfg)
	}

	app.AMQPURL = "amqp://localhost/"
	cfg, _ = FromAppConfig(app)
	if cfg.AMQPURL == "" || cfg.AMQPExchange != "gastos" || cfg.AMQPQueue != "q" {
		t.Errorf("AMQP settings not carried: %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "memory" || got[1] != "sqlite" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}
