package dedup

import (
	"bytes"
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", []byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hash(tt.data); got != tt.want {
				t.Errorf("Hash() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHashReaderMatchesHash(t *testing.T) {
	data := bytes.Repeat([]byte("photo-bytes"), 10_000)

	got, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader() error = %v", err)
	}
	if want := Hash(data); got != want {
		t.Errorf("HashReader() = %s, want %s", got, want)
	}
}

func TestIsDuplicate(t *testing.T) {
	a := []byte("first photo")
	b := []byte("second photo")
	aCopy := append([]byte(nil), a...)

	tests := []struct {
		name      string
		candidate []byte
		existing  [][]byte
		want      bool
	}{
		{"no existing photos", a, nil, false},
		{"exact copy present", aCopy, [][]byte{b, a}, true},
		{"only different content", a, [][]byte{b}, false},
		{"one byte differs", []byte("first photO"), [][]byte{a}, false},
		{"empty candidate against empty existing", []byte{}, [][]byte{{}}, true},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsDuplicate(tt.candidate, tt.existing); got != tt.want {
				t.Errorf("IsDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashIsLowercaseHex(t *testing.T) {
	h := Hash([]byte("x"))
	if len(h) != 64 {
		t.Fatalf("len(Hash) = %d, want 64", len(h))
	}
	if strings.ToLower(h) != h {
		t.Errorf("Hash() = %s, want lowercase hex", h)
	}
}
