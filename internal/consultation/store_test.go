package consultation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sample(category, urgency string) Consultation {
	return New("Is it legal to record a phone call?", category, urgency, "Legal Status: ...", DemoModel,
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
}

func TestStore_EmptyFileGivesZeroStats(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "consultations.json"))

	st := s.Stats()
	if st.TotalConsultations != 0 {
		t.Fatalf("expected 0 consultations, got %d", st.TotalConsultations)
	}
	if st.Categories == nil || len(st.Categories) != 0 {
		t.Fatalf("expected empty non-nil categories, got %#v", st.Categories)
	}
	if st.UrgencyLevels == nil || len(st.UrgencyLevels) != 0 {
		t.Fatalf("expected empty non-nil urgency levels, got %#v", st.UrgencyLevels)
	}
}

func TestStore_SaveIncrementsBuckets(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "consultations.json"))
	ctx := context.Background()

	_ = s.Save(ctx, sample("civil", "normal"))
	before := s.Stats()

	if err := s.Save(ctx, sample("criminal", "urgent")); err != nil {
		t.Fatalf("save: %v", err)
	}
	after := s.Stats()

	if after.TotalConsultations != before.TotalConsultations+1 {
		t.Fatalf("expected total to grow by 1, got %d -> %d", before.TotalConsultations, after.TotalConsultations)
	}
	if after.Categories["criminal"] != before.Categories["criminal"]+1 {
		t.Fatalf("expected criminal +1, got %d", after.Categories["criminal"])
	}
	if after.UrgencyLevels["urgent"] != before.UrgencyLevels["urgent"]+1 {
		t.Fatalf("expected urgent +1, got %d", after.UrgencyLevels["urgent"])
	}
	if after.Categories["civil"] != 1 || after.UrgencyLevels["normal"] != 1 {
		t.Fatalf("expected other buckets untouched, got %+v", after)
	}
}

func TestStore_StatsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consultations.json")
	legacy := `[{"id":"1","query":"q","response":"r","ai_model":"demo_mode","timestamp":"2024-01-01T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	st := Open(path).Stats()
	if st.Categories["unknown"] != 1 {
		t.Fatalf("expected missing category counted as unknown, got %#v", st.Categories)
	}
	if st.UrgencyLevels["normal"] != 1 {
		t.Fatalf("expected missing urgency counted as normal, got %#v", st.UrgencyLevels)
	}
}

func TestStore_RoundTripAfterRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consultations.json")
	s := Open(path)
	ctx := context.Background()

	first := sample("family", "emergency").WithUserIP("1.2.3.4").WithResponseTime(1500 * time.Millisecond)
	second := sample("tax", "normal")
	for _, c := range []Consultation{first, second} {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	want := s.All()
	got := Open(path).All()
	if len(got) != len(want) {
		t.Fatalf("expected %d records after reload, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.ID != g.ID || w.Query != g.Query || w.Category != g.Category || w.Urgency != g.Urgency ||
			w.Response != g.Response || w.AIModel != g.AIModel || !w.Timestamp.Equal(g.Timestamp) {
			t.Fatalf("record %d differs after reload: want %+v, got %+v", i, w, g)
		}
	}
	if got[0].UserIP == nil || *got[0].UserIP != "1.2.3.4" {
		t.Fatalf("expected user_ip to survive reload")
	}
	if got[0].ResponseTime == nil || *got[0].ResponseTime != 1.5 {
		t.Fatalf("expected response_time 1.5 after reload")
	}
	if got[1].UserIP != nil || got[1].ResponseTime != nil {
		t.Fatalf("expected optional fields to stay nil")
	}
}

func TestStore_SaveFailureSurfacesError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := Open(filepath.Join(blocker, "consultations.json"))

	err := s.Save(context.Background(), sample("cyber", "normal"))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if s.Stats().TotalConsultations != 0 {
		t.Fatalf("expected failed save to leave no record")
	}
}

func TestStore_Exists(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "consultations.json"))
	c := sample("labor", "normal")
	_ = s.Save(context.Background(), c)

	if !s.Exists(c.ID) {
		t.Fatalf("expected saved id to exist")
	}
	if s.Exists("nope") {
		t.Fatalf("expected unknown id not to exist")
	}
}
