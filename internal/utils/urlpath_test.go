package utils

import (
	"testing"
)

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		wantErr  bool
	}{
		{
			name:     "Series episode URL",
			url:      "https://tv.nrk.no/serie/side-om-side/sesong/1/episode/2",
			expected: "side om side 1 2",
		},
		{
			name:     "Programme id",
			url:      "https://tv.nrk.no/program/KMTE50001219",
			expected: "KMTE50001219",
		},
		{
			name:     "Trailing slash",
			url:      "https://tv.nrk.no/serie/skam/",
			expected: "skam",
		},
		{
			name:     "Query parameters ignored",
			url:      "https://example.com/video/my_clip?t=30",
			expected: "my clip",
		},
		{
			name:     "No path falls back to host",
			url:      "https://example.com",
			expected: "example.com",
		},
		{
			name:     "Only numbers falls back to host",
			url:      "https://example.com/1/2",
			expected: "example.com",
		},
		{
			name:    "Invalid URL",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TitleFromURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TitleFromURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("TitleFromURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}
