package store

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetrySerialization(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		code      string
		wantCalls int
		wantErr   bool
	}{
		{"success", 0, "", 1, false},
		{"serialization failure recovers", 2, "40001", 3, false},
		{"deadlock recovers", 1, "40P01", 2, false},
		{"gives up", 10, "40001", maxTxRetries + 1, true},
		{"other error", 10, "23505", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			calls := 0
			err := retrySerialization(zap.New(core), func() error {
				calls++
				if calls <= tt.failures {
					return errors.Wrap(&pgconn.PgError{Code: tt.code}, "store: error committing transaction")
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if got := logs.FilterMessage("serialization error, retrying").Len(); got != tt.wantCalls-1 {
				t.Errorf("logged %d retries, want %d", got, tt.wantCalls-1)
			}
		})
	}
}

func TestActivityQueriesScopedByClient(t *testing.T) {
	if !strings.Contains(createSchema, "PRIMARY KEY (client_id, id)") {
		t.Error("heatmap_activities is not keyed by client")
	}
	for name, q := range map[string]string{
		"select": selectActivityList,
		"skip":   markSkippedQuery,
	} {
		if !strings.Contains(q, "WHERE client_id = $1") {
			t.Errorf("%s query is not scoped to the client: %s", name, q)
		}
	}
	if !strings.Contains(upsertActivityQuery, "ON CONFLICT (client_id, id)") {
		t.Error("upsert does not conflict on the client key")
	}
}
