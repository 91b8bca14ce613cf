package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/auth/signup":     "/auth/signup",
		"/users/12":        "/users/{id}",
		"/users/12/photos": "/users/{id}/photos",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordAccountEvent(t *testing.T) {
	before := testutil.ToFloat64(AccountEvents.WithLabelValues("signup", OutcomeSuccess))
	RecordAccountEvent("signup", OutcomeSuccess)
	after := testutil.ToFloat64(AccountEvents.WithLabelValues("signup", OutcomeSuccess))
	if after != before+1 {
		t.Errorf("account_events_total: got %v, want %v", after, before+1)
	}
}

func TestAddPhotosSwept_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(PhotosSwept)
	AddPhotosSwept(0)
	AddPhotosSwept(3)
	if got := testutil.ToFloat64(PhotosSwept); got != before+3 {
		t.Errorf("profile_photos_swept_total: got %v, want %v", got, before+3)
	}
}
