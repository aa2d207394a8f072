package datauri

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/hpungsan/frag/internal/errors"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		mimeType string
		want     string
	}{
		{"text", []byte("foo"), "text/plain", "data:text/plain;base64,Zm9v"},
		{"padding", []byte("fo"), "application/octet-stream", "data:application/octet-stream;base64,Zm8="},
		{"empty", nil, "image/png", "data:image/png;base64,"},
		{"binary", []byte{0xfb, 0xff}, "application/zip", "data:application/zip;base64,+/8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.raw, tt.mimeType)
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
			if again := Encode(tt.raw, tt.mimeType); again != got {
				t.Errorf("Encode() not deterministic: %q vs %q", again, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if got := Wrap("image/jpeg", "AAAA"); got != "data:image/jpeg;base64,AAAA" {
		t.Errorf("Wrap() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantMime string
		wantBody string
	}{
		{"image", "data:image/png;base64,Zm9v", false, "image/png", "Zm9v"},
		{"empty payload", "data:text/plain;base64,", false, "text/plain", ""},
		{"payload not alphabet checked", "data:text/plain;base64,!!!", false, "text/plain", "!!!"},
		{"payload with newline", "data:text/plain;base64,Zm9v\nYmFy", false, "text/plain", "Zm9v\nYmFy"},
		{"not a data uri", "not-a-data-uri", true, "", ""},
		{"missing mime", "data:;base64,Zm9v", true, "", ""},
		{"missing base64 marker", "data:image/png,Zm9v", true, "", ""},
		{"mime with comma", "data:image,png;base64,Zm9v", true, "", ""},
		{"mime with parameter", "data:text/plain;charset=utf-8;base64,Zm9v", true, "", ""},
		{"leading whitespace", " data:image/png;base64,Zm9v", true, "", ""},
		{"empty", "", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%q) expected error", tt.input)
				}
				if !errors.Is(err, errors.ErrValidation) {
					t.Errorf("error code = %v, want VALIDATION_ERROR", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q) error = %v", tt.input, err)
			}
			if parts.MimeType != tt.wantMime {
				t.Errorf("MimeType = %q, want %q", parts.MimeType, tt.wantMime)
			}
			if parts.Payload != tt.wantBody {
				t.Errorf("Payload = %q, want %q", parts.Payload, tt.wantBody)
			}
		})
	}
}

func TestEncodeValidateRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0},
		[]byte("hello, world"),
		bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 257),
	}
	for i := 0; i < 256; i++ {
		inputs = append(inputs, bytes.Repeat([]byte{byte(i)}, i%7))
	}

	for _, raw := range inputs {
		uri := Encode(raw, "application/octet-stream")
		parts, err := Validate(uri)
		if err != nil {
			t.Fatalf("Validate(Encode(%x)) error = %v", raw, err)
		}
		decoded, err := base64.StdEncoding.DecodeString(parts.Payload)
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if !bytes.Equal(decoded, raw) {
			t.Fatalf("round trip = %x, want %x", decoded, raw)
		}
	}
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"data:image/png;base64,Zm9v", true},
		{"data:application/pdf;base64,Zm9v", false},
		{"data:image", true},
		{"data:imagery/x;base64,", true},
		{"DATA:image/png;base64,Zm9v", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImage(tt.input); got != tt.want {
			t.Errorf("IsImage(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	parts, data, err := Decode("data:text/plain;base64,Zm9v")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if parts.MimeType != "text/plain" || string(data) != "foo" {
		t.Errorf("Decode() = %q, %q", parts.MimeType, data)
	}

	_, _, err = Decode("data:text/plain;base64,@@@")
	if !errors.Is(err, errors.ErrInvalidArgument) {
		t.Errorf("Decode(bad payload) error = %v, want INVALID_ARGUMENT", err)
	}

	_, _, err = Decode("garbage")
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Decode(garbage) error = %v, want VALIDATION_ERROR", err)
	}
}

func TestEstimateDecodedSize(t *testing.T) {
	uri := "data:image/jpeg;base64," + strings.Repeat("A", 100)
	if len(uri) != 122 {
		t.Fatalf("len(uri) = %d, want 122", len(uri))
	}
	if got := EstimateDecodedSize(uri); got != 91 {
		t.Errorf("EstimateDecodedSize() = %d, want 91", got)
	}
	if got := EstimateDecodedSize(""); got != 0 {
		t.Errorf("EstimateDecodedSize(\"\") = %d, want 0", got)
	}
	if got := EstimateDecodedSize("abcd"); got != 3 {
		t.Errorf("EstimateDecodedSize(abcd) = %d, want 3", got)
	}
}

func TestSelectExtension(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".png"},
		{"application/pdf", ".pdf"},
		{"application/zip", ".zip"},
		{"IMAGE/JPEG", ".jpg"},
		{"text/plain; charset=utf-8", ".txt"},
		{"application/x-unknown", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SelectExtension(tt.mime); got != tt.want {
			t.Errorf("SelectExtension(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}
