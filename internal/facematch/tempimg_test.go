package facematch

import (
	"bytes"
	"encoding/base64"
	"os"
	"testing"
)

func TestDecodeDataURL(t *testing.T) {
	payload := []byte("jpeg-bytes")
	encoded := base64.StdEncoding.EncodeToString(payload)

	cases := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"data url", "data:image/jpeg;base64," + encoded, payload, false},
		{"bare base64", encoded, payload, false},
		{"invalid base64", "data:image/jpeg;base64,not-base64!!!", nil, true},
		{"empty payload", "data:image/jpeg;base64,", nil, true},
		{"empty string", "", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeDataURL(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDataURL: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriteTempCleansUp(t *testing.T) {
	path, cleanup, err := writeTemp([]byte("image"))
	if err != nil {
		t.Fatalf("writeTemp: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if string(data) != "image" {
		t.Errorf("temp content = %q, want %q", data, "image")
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp file not removed by cleanup")
	}
}
