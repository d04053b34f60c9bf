package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not unique violation")
	}
	if IsUniqueViolation(errors.New("x")) {
		t.Fatalf("plain error is not unique violation")
	}
}

func TestNullHelpersRoundTrip(t *testing.T) {
	if NullString("").Valid {
		t.Fatalf("empty string should be NULL")
	}
	if p := StringPtr(NullString("abc")); p == nil || *p != "abc" {
		t.Fatalf("unexpected string ptr: %v", p)
	}

	if NullTime(nil).Valid {
		t.Fatalf("nil time should be NULL")
	}
	now := time.Unix(1700000000, 0).UTC()
	if p := TimePtr(NullTime(&now)); p == nil || !p.Equal(now) {
		t.Fatalf("unexpected time ptr: %v", p)
	}
}

func TestPoolDefaults(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 8}.withDefaults()
	if c.MaxIdleConns != 8 {
		t.Fatalf("expected idle conns to follow open conns, got %d", c.MaxIdleConns)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout %v", c.PingTimeout)
	}
}
