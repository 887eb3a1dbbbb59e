package zeroconf_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glyphkey/kbcompanion/internal/identity"
	"github.com/glyphkey/kbcompanion/internal/zeroconf"
)

var testInfo = identity.Info{DeviceID: "3f0c", Hostname: "kbc-test", Version: "1.2.3"}

func TestTXT(t *testing.T) {
	want := []string{"version=1.2.3", "device=3f0c", "api=/api"}
	if diff := cmp.Diff(want, zeroconf.TXT(testInfo)); diff != "" {
		t.Errorf("TXT() mismatch (-want +got):\n%s", diff)
	}
}

// TestStart_Cancel starts the service and cancels the context within 1 second.
// It verifies that Start returns without blocking.
func TestStart_Cancel(t *testing.T) {
	svc := zeroconf.New(testInfo, 18080)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	select {
	case err := <-done:
		// mDNS may be unavailable in the test environment; what matters is
		// that Start returned.
		if err != nil {
			t.Logf("Start returned error (may be expected in CI): %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return within 3 seconds after context cancellation")
	}
}
