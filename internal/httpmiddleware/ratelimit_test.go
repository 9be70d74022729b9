package httpmiddleware

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewRateLimiter(3, 60)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request above capacity should be denied")
	}
	// Other clients keep their own bucket.
	if !l.Allow("5.6.7.8") {
		t.Error("separate key should not be affected")
	}
}

func TestAllowDefaultCapacity(t *testing.T) {
	l := NewRateLimiter(0, 2)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("capacity should default to perMin")
	}
	if l.Allow("k") {
		t.Error("third request should be denied")
	}
}
