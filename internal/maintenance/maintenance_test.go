package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

type fakeChecker struct {
	mu      sync.Mutex
	results []models.KeyboardStatus
	errs    []error
	calls   int
}

func (f *fakeChecker) Check(context.Context) (models.KeyboardStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], f.errs[i]
}

func TestCheckStatus_ReportsChangesOnly(t *testing.T) {
	checker := &fakeChecker{
		results: []models.KeyboardStatus{
			{Enabled: true},
			{Enabled: true},
			{},
			{Enabled: true, Active: true},
		},
		errs: []error{nil, nil, errors.New("unreachable"), nil},
	}

	var mu sync.Mutex
	var seen []models.KeyboardStatus
	svc := New(checker, prefs.NewMemStore(), Options{
		StatusInterval: 10 * time.Millisecond,
		OnStatus: func(st models.KeyboardStatus) {
			mu.Lock()
			seen = append(seen, st)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("OnStatus calls = %d (%+v), want 2", len(seen), seen)
	}
	if !seen[0].Enabled || seen[0].Active {
		t.Errorf("first status = %+v", seen[0])
	}
	if !seen[1].Active {
		t.Errorf("second status = %+v", seen[1])
	}
}

func TestRunBackupNow_CopiesAndPrunes(t *testing.T) {
	dataDir := t.TempDir()
	store := prefs.NewJSONStore(dataDir)
	if err := store.Set("flutter.sound_volume", 42.0); err != nil {
		t.Fatal(err)
	}

	backupDir := filepath.Join(t.TempDir(), "backups")
	svc := New(&fakeChecker{}, store, Options{BackupDir: backupDir, BackupKeep: 2})

	day := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d := day.AddDate(0, 0, i)
		svc.now = func() time.Time { return d }
		if _, err := svc.RunBackupNow(); err != nil {
			t.Fatalf("RunBackupNow: %v", err)
		}
	}

	files, err := svc.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("backups = %v, want 2 after pruning", files)
	}
	if filepath.Base(files[1]) != "prefs-2026-03-03.json" {
		t.Errorf("newest backup = %s", files[1])
	}

	data, err := os.ReadFile(files[1])
	if err != nil {
		t.Fatal(err)
	}
	want, _ := os.ReadFile(store.Path())
	if string(data) != string(want) {
		t.Errorf("backup content = %s, want %s", data, want)
	}
}

func TestRunBackupNow_Disabled(t *testing.T) {
	svc := New(&fakeChecker{}, prefs.NewMemStore(), Options{})
	if _, err := svc.RunBackupNow(); !errors.Is(err, ErrBackupsDisabled) {
		t.Errorf("RunBackupNow() without BackupDir: error = %v, want ErrBackupsDisabled", err)
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	svc := New(&fakeChecker{}, prefs.NewMemStore(), Options{BackupDir: filepath.Join(t.TempDir(), "none")})
	files, err := svc.ListBackups()
	if err != nil || len(files) != 0 {
		t.Errorf("ListBackups() = %v, %v", files, err)
	}
}
