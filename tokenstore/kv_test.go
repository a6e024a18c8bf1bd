package tokenstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKVBackedStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	kv := NewRedisKV(rdb, "dev1")
	s, _ := newTestStore(t, kv, 0)

	if err := s.Put(ctx, samplePair(time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("ats:dev1:access_token") {
		t.Fatal("expected namespaced redis key")
	}
	if ttl := mr.TTL("ats:dev1:access_token"); ttl != 0 {
		t.Fatalf("expected no redis ttl, got %v", ttl)
	}
	if tok, ok := s.AccessToken(ctx); !ok || tok != "A" {
		t.Fatalf("expected token from redis backend, got %q ok=%v", tok, ok)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("ats:dev1:access_token") {
		t.Fatal("expected redis key deleted")
	}
}

func TestRedisKVMissingAndUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	kv := NewRedisKV(rdb, "")
	ctx := context.Background()

	if _, err := kv.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Delete(ctx, "nope"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	mr.Close()
	if _, err := kv.Get(ctx, "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSQLKVQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	kv := NewSQLKV(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(sqlCreateTable)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(sqlUpsertEntry)).
		WithArgs("access_token", []byte("v")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectEntry)).
		WithArgs("access_token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v")))
	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectEntry)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteEntry)).
		WithArgs("access_token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := kv.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := kv.Set(ctx, "access_token", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get(ctx, "access_token")
	if err != nil || string(got) != "v" {
		t.Fatalf("get: %q %v", got, err)
	}
	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Delete(ctx, "access_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLKVWrapsDriverErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	kv := NewSQLKV(db)

	mock.ExpectExec(regexp.QuoteMeta(sqlUpsertEntry)).WillReturnError(errors.New("disk full"))
	if err := kv.Set(context.Background(), "k", []byte("v")); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
