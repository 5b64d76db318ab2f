package main

import "testing"

func TestLocalURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":5005", "http://127.0.0.1:5005/"},
		{"0.0.0.0:8080", "http://127.0.0.1:8080/"},
		{"localhost:9000", "http://localhost:9000/"},
	}
	for _, tt := range tests {
		if got := localURL(tt.addr); got != tt.want {
			t.Errorf("localURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
