package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testItem(id string, ts time.Time) Item {
	return Item{
		ID:        id,
		Timestamp: ts,
		Mode:      ModeTryOn,
		ImageURL:  "data:image/jpeg;base64,aW1n",
	}
}

// paddedItem returns an item whose JSON encoding is roughly n bytes,
// for exercising the capacity budget.
func paddedItem(id string, ts time.Time, n int) Item {
	it := testItem(id, ts)
	pad, _ := json.Marshal(strings.Repeat("x", n))
	it.Settings.Extra = map[string]json.RawMessage{"pad": pad}
	return it
}

// TestAddAndGet verifies an item round-trips through the store with
// its mode-specific fields intact.
func TestAddAndGet(t *testing.T) {
	s := openTestStore(t)

	it := testItem("a1", time.Now())
	it.Prompt = "spring moodboard look"
	it.Settings.History = []HistoryEntry{{StepName: "Moodboard", ImageURL: "data:image/jpeg;base64,bQ==", Prompt: "mood"}}
	it.Settings.Extra = map[string]json.RawMessage{
		"garmentUrl": json.RawMessage(`"data:image/jpeg;base64,Zw=="`),
	}
	if err := s.Add(it); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := s.Get("a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Mode != ModeTryOn {
		t.Errorf("unexpected mode: %s", got.Mode)
	}
	if got.Prompt != "spring moodboard look" {
		t.Errorf("prompt not preserved: %q", got.Prompt)
	}
	if len(got.Settings.History) != 1 || got.Settings.History[0].StepName != "Moodboard" {
		t.Errorf("history not preserved: %+v", got.Settings.History)
	}
	if string(got.Settings.Extra["garmentUrl"]) != `"data:image/jpeg;base64,Zw=="` {
		t.Errorf("extra field not preserved: %s", got.Settings.Extra["garmentUrl"])
	}
}

// TestGetAllNewestFirst verifies ordering by descending timestamp with
// descending ID as a deterministic tiebreak.
func TestGetAllNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, it := range []Item{
		testItem("b", base.Add(time.Minute)),
		testItem("a", base.Add(2*time.Minute)),
		testItem("tie2", base),
		testItem("tie1", base),
	} {
		if err := s.Add(it); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	items, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	want := []string{"a", "b", "tie2", "tie1"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

// TestAddUpsert verifies adding an existing ID replaces the stored
// item without growing the count.
func TestAddUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add(testItem("x", time.Now())); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	updated := testItem("x", time.Now())
	updated.Mode = ModePortrait
	if err := s.Add(updated); err != nil {
		t.Fatalf("Add (replace) failed: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 item after replace, got %d", n)
	}
	got, err := s.Get("x")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Mode != ModePortrait {
		t.Errorf("expected replaced mode, got %s", got.Mode)
	}
}

// TestAddEvictsOldestFirst verifies the capacity invariant: when an
// insert would exceed the budget, the oldest items go first and the
// newcomer survives.
func TestAddEvictsOldestFirst(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetLimitBytes(3000); err != nil {
		t.Fatalf("SetLimitBytes failed: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		it := paddedItem(fmt.Sprintf("old%d", i), base.Add(time.Duration(i)*time.Minute), 800)
		if err := s.Add(it); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	// This one pushes the total over 3000 bytes.
	if err := s.Add(paddedItem("new", base.Add(time.Hour), 800)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if _, err := s.Get("old0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected oldest item evicted, got err=%v", err)
	}
	if _, err := s.Get("new"); err != nil {
		t.Errorf("newcomer should survive eviction: %v", err)
	}
	total, err := s.TotalSize()
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if total > 3000 {
		t.Errorf("total %d still over budget after eviction", total)
	}
}

// TestReplaceDoesNotEvictSelf verifies replacing an item only counts
// the size delta, so a same-size replace evicts nothing.
func TestReplaceDoesNotEvictSelf(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetLimitBytes(2000); err != nil {
		t.Fatalf("SetLimitBytes failed: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Add(paddedItem("keep", base, 700)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(paddedItem("target", base.Add(time.Minute), 900)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	// Replace target with a same-size payload; keep must survive.
	if err := s.Add(paddedItem("target", base.Add(2*time.Minute), 900)); err != nil {
		t.Fatalf("Add (replace) failed: %v", err)
	}

	if _, err := s.Get("keep"); err != nil {
		t.Errorf("unrelated item evicted on replace: %v", err)
	}
}

// TestOversizedItemStillStored verifies an item bigger than the whole
// budget evicts everything else but is stored itself.
func TestOversizedItemStillStored(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetLimitBytes(1000); err != nil {
		t.Fatalf("SetLimitBytes failed: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Add(paddedItem("small", base, 300)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(paddedItem("huge", base.Add(time.Minute), 5000)); err != nil {
		t.Fatalf("Add (oversized) failed: %v", err)
	}

	if _, err := s.Get("small"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected small item evicted, got err=%v", err)
	}
	if _, err := s.Get("huge"); err != nil {
		t.Errorf("oversized item should still be stored: %v", err)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly the oversized item, got %d items", n)
	}
}

// TestAddManyBypassesCapacity verifies bulk inserts skip the budget
// check entirely.
func TestAddManyBypassesCapacity(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetLimitBytes(1000); err != nil {
		t.Fatalf("SetLimitBytes failed: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	items := []Item{
		paddedItem("i1", base, 800),
		paddedItem("i2", base.Add(time.Minute), 800),
		paddedItem("i3", base.Add(2*time.Minute), 800),
	}
	if err := s.AddMany(items); err != nil {
		t.Fatalf("AddMany failed: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected all 3 items stored over budget, got %d", n)
	}
}

// TestDeleteAndClear verifies delete semantics and full clears.
func TestDeleteAndClear(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add(testItem("d1", time.Now())); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Delete("d1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}

	if err := s.Add(testItem("d2", time.Now())); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	total, err := s.TotalSize()
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected empty store, total %d", total)
	}
}

// TestTotalSizeMatchesItemSizes verifies the aggregate equals the sum
// of the individual JSON footprints.
func TestTotalSizeMatchesItemSizes(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var want int64
	for i := 0; i < 3; i++ {
		it := paddedItem(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Second), 100*(i+1))
		size, err := it.Size()
		if err != nil {
			t.Fatalf("Size failed: %v", err)
		}
		want += size
		if err := s.Add(it); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	got, err := s.TotalSize()
	if err != nil {
		t.Fatalf("TotalSize failed: %v", err)
	}
	if got != want {
		t.Errorf("expected total %d, got %d", want, got)
	}
}

// TestLimitDefaultAndOverride verifies the default budget and its
// persistence through settings.
func TestLimitDefaultAndOverride(t *testing.T) {
	s := openTestStore(t)

	limit, err := s.LimitBytes()
	if err != nil {
		t.Fatalf("LimitBytes failed: %v", err)
	}
	if limit != DefaultLimitBytes {
		t.Errorf("expected default limit %d, got %d", int64(DefaultLimitBytes), limit)
	}

	if err := s.SetLimitBytes(50 << 20); err != nil {
		t.Fatalf("SetLimitBytes failed: %v", err)
	}
	limit, err = s.LimitBytes()
	if err != nil {
		t.Fatalf("LimitBytes failed: %v", err)
	}
	if limit != 50<<20 {
		t.Errorf("expected 50MiB limit, got %d", limit)
	}

	if err := s.SetLimitBytes(0); err == nil {
		t.Error("expected error for non-positive limit")
	}
}

// TestAddRejectsUnknownMode verifies the mode enum is closed.
func TestAddRejectsUnknownMode(t *testing.T) {
	s := openTestStore(t)
	it := testItem("m", time.Now())
	it.Mode = "hologram"
	if err := s.Add(it); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

// TestBackupRoundTrip verifies a backup restores byte-identical item
// payloads into a fresh store.
func TestBackupRoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	it := testItem("bk", base)
	it.Settings.Extra = map[string]json.RawMessage{"note": json.RawMessage(`"runway"`)}
	if err := s.Add(it); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	var buf bytes.Buffer
	if err := s.WriteBackup(&buf); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	fresh := openTestStore(t)
	n, err := fresh.RestoreBackup(&buf)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 restored item, got %d", n)
	}
	got, err := fresh.Get("bk")
	if err != nil {
		t.Fatalf("Get after restore failed: %v", err)
	}
	if !got.Timestamp.Equal(base) {
		t.Errorf("timestamp changed across backup: %v", got.Timestamp)
	}
	if string(got.Settings.Extra["note"]) != `"runway"` {
		t.Errorf("extra field lost across backup: %s", got.Settings.Extra["note"])
	}
}

// TestRestoreOverwritesCollidingIDs verifies the backup's version wins
// on ID collision.
func TestRestoreOverwritesCollidingIDs(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add(testItem("c", time.Now())); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	backup := `{"timestamp":"2025-06-01T12:00:00Z","data":[{"id":"c","timestamp":1748779200000,"mode":"portrait"}]}`
	if _, err := s.RestoreBackup(strings.NewReader(backup)); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	got, err := s.Get("c")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Mode != ModePortrait {
		t.Errorf("expected backup version to win, got mode %s", got.Mode)
	}
}

// TestReadBackupRejectsMalformed verifies shape validation.
func TestReadBackupRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"data":[]}`,
		`{"timestamp":"not a time","data":[]}`,
		`{"timestamp":"2025-06-01T12:00:00Z"}`,
		`{"timestamp":"2025-06-01T12:00:00Z","data":[{"timestamp":1,"mode":"tryOn"}]}`,
		`{"timestamp":"2025-06-01T12:00:00Z","data":[{"id":"x","timestamp":1,"mode":"hologram"}]}`,
		`[]`,
	}
	for _, c := range cases {
		if _, err := ReadBackup(strings.NewReader(c)); err == nil {
			t.Errorf("expected error for %s", c)
		}
	}
}

// TestJobLifecycle verifies enqueue, claim, progress, and completion.
func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j1", Type: "album_build", PayloadJSON: `{"theme":"noir"}`}); err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"album_build"})
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if claimed == nil || claimed.ID != "j1" {
		t.Fatalf("expected to claim j1, got %+v", claimed)
	}
	if claimed.Status != "running" {
		t.Errorf("expected running status, got %s", claimed.Status)
	}

	// A second claim finds nothing.
	again, err := s.ClaimNextJob([]string{"album_build"})
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if again != nil {
		t.Errorf("expected no claimable job, got %+v", again)
	}

	if err := s.UpdateJobProgress("j1", "rendering pages", 60); err != nil {
		t.Fatalf("UpdateJobProgress failed: %v", err)
	}
	job, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Stage != "rendering pages" || job.Percent != 60 {
		t.Errorf("progress not recorded: %+v", job)
	}

	if err := s.CompleteJob("j1", `{"path":"/tmp/album.pdf"}`); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}
	job, err = s.GetJob("j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != "completed" || job.Percent != 100 {
		t.Errorf("unexpected final state: %+v", job)
	}
	if job.ResultJSON != `{"path":"/tmp/album.pdf"}` {
		t.Errorf("result not recorded: %s", job.ResultJSON)
	}
}

// TestFailJobRetriesWithBackoff verifies a failed job goes back to
// pending with a future run_after until attempts are exhausted.
func TestFailJobRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnqueueJob(Job{ID: "j2", Type: "album_build", PayloadJSON: "{}", MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"album_build"}); err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}

	if err := s.FailJob("j2", "upstream timeout"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}
	job, err := s.GetJob("j2")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != "pending" {
		t.Errorf("expected pending for retry, got %s", job.Status)
	}
	if !job.RunAfter.After(time.Now().UTC().Add(-time.Second)) {
		t.Errorf("expected future run_after, got %v", job.RunAfter)
	}

	// Exhaust attempts.
	if err := s.FailJob("j2", "upstream timeout"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}
	job, err = s.GetJob("j2")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != "failed" {
		t.Errorf("expected terminal failure, got %s", job.Status)
	}
	if job.LastError != "upstream timeout" {
		t.Errorf("expected last error recorded, got %q", job.LastError)
	}
}
