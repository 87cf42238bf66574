package util

import "testing"

func TestRingBufferWrap(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	got := r.Snapshot()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("snapshot = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
}

func TestRingBufferReset(t *testing.T) {
	r := NewRingBuffer[string](2)
	r.Push("a")
	r.Reset()
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Fatal("reset did not clear the buffer")
	}
	r.Push("b")
	if got := r.Snapshot(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("snapshot after reset = %v", got)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"  api.example.org/ ":         "https://api.example.org",
		"https://api.example.org///":  "https://api.example.org",
		"http://localhost:5000/api/":  "http://localhost:5000/api",
		"":                            "",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateUserID(t *testing.T) {
	if _, err := ValidateUserID("  pat-1 "); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"", "a/b", "a b", "..", "a?b"} {
		if _, err := ValidateUserID(bad); err == nil {
			t.Errorf("ValidateUserID(%q) accepted", bad)
		}
	}
}
