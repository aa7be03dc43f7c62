package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oncosaferx/authcore/internal/audit"
	_ "github.com/oncosaferx/authcore/testing"
)

// searchSink backs compliance queries with the in-memory entry list.
type searchSink struct {
	memSink
}

func (s *searchSink) Search(ctx context.Context, c audit.SearchCriteria) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range s.all() {
		if c.TenantID != "" && e.TenantID != c.TenantID {
			continue
		}
		if c.EventType != "" && e.EventType != c.EventType {
			continue
		}
		if c.RiskLevel != "" && e.RiskLevel != c.RiskLevel {
			continue
		}
		if c.ActorHash != "" && e.ActorHash != c.ActorHash {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func TestSearchEntries(t *testing.T) {
	sink := &searchSink{}
	rec := audit.NewRecorder(sink, nil, audit.NewHasher("salt"), nil, nil, audit.RecorderConfig{}, nil)
	ctx := context.Background()

	events := []audit.Event{
		{Type: audit.EventRoleAssigned, Actor: "admin", TenantID: "tenant-a"},
		{Type: audit.EventSessionHijackingDetected, Actor: "dr-lee", TenantID: "tenant-a"},
		{Type: audit.EventRoleAssigned, Actor: "admin", TenantID: "tenant-b"},
	}
	for _, ev := range events {
		if _, err := rec.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	rec.Flush()

	r := chi.NewRouter()
	audit.NewHandler(nil, rec).MountRoutes(r)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/entries?tenantId=tenant-a&eventType=role_assigned", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(body.Entries))
	}
	if body.Entries[0].TenantID != "tenant-a" || body.Entries[0].EventType != audit.EventRoleAssigned {
		t.Fatalf("unexpected entry %+v", body.Entries[0])
	}
}

func TestSearchEntriesByActor(t *testing.T) {
	sink := &searchSink{}
	rec := audit.NewRecorder(sink, nil, audit.NewHasher("salt"), nil, nil, audit.RecorderConfig{}, nil)

	if _, err := rec.Record(context.Background(), audit.Event{
		Type: audit.EventSessionCreated, Actor: "dr-lee", TenantID: "tenant-a",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Flush()

	r := chi.NewRouter()
	audit.NewHandler(nil, rec).MountRoutes(r)

	// The raw identifier is hashed server-side before the query runs.
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/entries?actor=dr-lee", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(body.Entries))
	}

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/entries?actor=someone-else", nil))
	var empty struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(empty.Entries) != 0 {
		t.Fatalf("expected no entries for unknown actor, got %d", len(empty.Entries))
	}
}

func TestSearchEntriesBadTimestamp(t *testing.T) {
	sink := &searchSink{}
	rec := audit.NewRecorder(sink, nil, audit.NewHasher("salt"), nil, nil, audit.RecorderConfig{}, nil)

	r := chi.NewRouter()
	audit.NewHandler(nil, rec).MountRoutes(r)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/entries?from=yesterday", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
