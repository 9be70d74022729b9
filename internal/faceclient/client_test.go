package faceclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeImage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerify(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("path = %s, want /verify", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"model_name":      r.FormValue("model_name"),
			"distance_metric": r.FormValue("distance_metric"),
			"threshold":       r.FormValue("threshold"),
		}
		for _, field := range []string{"img1", "img2"} {
			if _, _, err := r.FormFile(field); err != nil {
				t.Errorf("missing %s: %v", field, err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"verified": true, "distance": 0.31}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Model: "VGG-Face", Metric: "cosine", Threshold: 0.4}, time.Second, false)
	probe := writeImage(t, "probe.jpg", "probe")
	gallery := writeImage(t, "gallery.jpg", "gallery")

	res, err := c.Verify(context.Background(), probe, gallery)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Verified || res.Distance != 0.31 {
		t.Errorf("result = %+v, want verified at 0.31", res)
	}
	want := map[string]string{"model_name": "VGG-Face", "distance_metric": "cosine", "threshold": "0.4"}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form %s = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no face detected in img1", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{}, time.Second, false)
	probe := writeImage(t, "probe.jpg", "probe")
	gallery := writeImage(t, "gallery.jpg", "gallery")

	if _, err := c.Verify(context.Background(), probe, gallery); err == nil {
		t.Error("expected error from non-2xx response")
	}
}

func TestDetectFaces(t *testing.T) {
	crop1 := base64.StdEncoding.EncodeToString([]byte("face-one"))
	crop2 := base64.StdEncoding.EncodeToString([]byte("face-two"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("path = %s, want /extract", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces": ["` + crop1 + `", "` + crop2 + `"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{}, time.Second, false)
	img := writeImage(t, "group.jpg", "group")

	crops, err := c.DetectFaces(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}
	if len(crops) != 2 || string(crops[0]) != "face-one" || string(crops[1]) != "face-two" {
		t.Errorf("crops = %q, want face-one, face-two", crops)
	}
}

func TestDetectFacesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces": []}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{}, time.Second, false)
	img := writeImage(t, "group.jpg", "group")

	crops, err := c.DetectFaces(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}
	if len(crops) != 0 {
		t.Errorf("got %d crops, want 0", len(crops))
	}
}

func TestSkipMode(t *testing.T) {
	c := New("http://unused", Options{}, time.Second, true)
	ctx := context.Background()

	res, err := c.Verify(ctx, "nonexistent1.jpg", "nonexistent2.jpg")
	if err != nil {
		t.Fatalf("Verify in skip mode: %v", err)
	}
	if !res.Verified || res.Distance != 0.25 {
		t.Errorf("skip result = %+v, want verified at 0.25", res)
	}

	crops, err := c.DetectFaces(ctx, "nonexistent.jpg")
	if err != nil || crops != nil {
		t.Errorf("skip DetectFaces = (%v, %v), want (nil, nil)", crops, err)
	}
	if err := c.Health(ctx); err != nil {
		t.Errorf("skip Health = %v, want nil", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{}, time.Second, false)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	srv.Close()
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error after server shutdown")
	}
}
