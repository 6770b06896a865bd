package acquire

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finscrape/internal/testutil"
)

func acceptAll(*goquery.Document) bool { return true }
func rejectAll(*goquery.Document) bool { return false }

func TestAcquire_AcceptFirstAttempt(t *testing.T) {
	renderer := testutil.NewFakeRenderer("<html><body><h1>live</h1></body></html>")
	a := New(renderer, acceptAll, 10, 0, nil)

	doc, err := a.Acquire(context.Background(), "AAPL", "summary", "http://example/quote/AAPL")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if doc.Find("h1").Text() != "live" {
		t.Errorf("document content = %q, want %q", doc.Find("h1").Text(), "live")
	}
	if renderer.Loads() != 1 {
		t.Errorf("loads = %d, want 1", renderer.Loads())
	}
	if renderer.Recreates() != 0 {
		t.Errorf("recreates = %d, want 0", renderer.Recreates())
	}
}

func TestAcquire_PermanentFailureExhaustsBudget(t *testing.T) {
	for _, retries := range []int{1, 3, 10} {
		renderer := testutil.NewFakeRenderer("<html></html>")
		a := New(renderer, rejectAll, retries, 0, nil)

		_, err := a.Acquire(context.Background(), "AAPL", "summary", "http://example")
		var aerr *Error
		if !errors.As(err, &aerr) {
			t.Fatalf("retries=%d: error = %v, want *acquire.Error", retries, err)
		}
		if aerr.Attempts != retries {
			t.Errorf("retries=%d: attempts = %d, want exactly %d", retries, aerr.Attempts, retries)
		}
		if aerr.Reason != ReasonWrongVariant {
			t.Errorf("retries=%d: reason = %s, want %s", retries, aerr.Reason, ReasonWrongVariant)
		}
		if renderer.Loads() != retries {
			t.Errorf("retries=%d: loads = %d, want %d", retries, renderer.Loads(), retries)
		}
		// The session is recreated between attempts but not after the last.
		if renderer.Recreates() != retries-1 {
			t.Errorf("retries=%d: recreates = %d, want %d", retries, renderer.Recreates(), retries-1)
		}
	}
}

func TestAcquire_RecoversAfterRecreate(t *testing.T) {
	attempts := 0
	renderer := &testutil.FakeRenderer{
		LoadFunc: func(context.Context, string) (string, error) {
			attempts++
			if attempts < 3 {
				return "<html><a class='variant'>Back to classic</a></html>", nil
			}
			return "<html><span class='live'>ok</span></html>", nil
		},
	}
	validate := func(doc *goquery.Document) bool {
		return doc.Find("span.live").Length() > 0
	}
	a := New(renderer, validate, 10, 0, nil)

	doc, err := a.Acquire(context.Background(), "AAPL", "summary", "http://example")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if doc.Find("span.live").Text() != "ok" {
		t.Error("accepted document is not the valid variant")
	}
	if renderer.Recreates() != 2 {
		t.Errorf("recreates = %d, want 2", renderer.Recreates())
	}
}

func TestAcquire_TimeoutReason(t *testing.T) {
	renderer := &testutil.FakeRenderer{
		LoadFunc: func(context.Context, string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}
	a := New(renderer, acceptAll, 2, 0, nil)

	_, err := a.Acquire(context.Background(), "AAPL", "summary", "http://example")
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *acquire.Error", err)
	}
	if aerr.Reason != ReasonTimeout {
		t.Errorf("reason = %s, want %s", aerr.Reason, ReasonTimeout)
	}
}

func TestAcquire_RenderErrorReason(t *testing.T) {
	renderer := &testutil.FakeRenderer{
		LoadFunc: func(context.Context, string) (string, error) {
			return "", errors.New("browser crashed")
		},
	}
	a := New(renderer, acceptAll, 2, 0, nil)

	_, err := a.Acquire(context.Background(), "AAPL", "summary", "http://example")
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *acquire.Error", err)
	}
	if aerr.Reason != ReasonRender {
		t.Errorf("reason = %s, want %s", aerr.Reason, ReasonRender)
	}
}

func TestAcquire_ContextCancellation(t *testing.T) {
	renderer := testutil.NewFakeRenderer("<html></html>")
	a := New(renderer, rejectAll, 100, time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Acquire(ctx, "AAPL", "summary", "http://example")
	if err == nil {
		t.Fatal("Acquire() with cancelled context returned nil error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Acquire() blocked %v past cancellation", elapsed)
	}
}

func TestAcquire_DefaultRetries(t *testing.T) {
	a := New(testutil.NewFakeRenderer(""), rejectAll, 0, 0, nil)
	if a.retries != DefaultRetries {
		t.Errorf("default retries = %d, want %d", a.retries, DefaultRetries)
	}
}

func TestReadBack(t *testing.T) {
	renderer := &testutil.FakeRenderer{
		ContentFunc: func(context.Context) (string, error) {
			return "<html><div class='expanded'>rows</div></html>", nil
		},
	}
	a := New(renderer, acceptAll, 1, 0, nil)

	doc, err := a.ReadBack(context.Background())
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	if doc.Find("div.expanded").Length() != 1 {
		t.Error("ReadBack() did not parse current content")
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Ticker: "AAPL", Page: "statistics", Reason: ReasonWrongVariant, Attempts: 10}
	msg := err.Error()
	for _, want := range []string{"AAPL", "statistics", "10", "wrong_variant"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}
