package utils

import "testing"

func TestShareKey(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "quark plain",
			url:  "https://pan.quark.cn/s/abc123def",
			want: "abc123def",
		},
		{
			name: "quark with password",
			url:  "https://pan.quark.cn/s/abc123def?pwd=xyzw",
			want: "abc123def",
		},
		{
			name: "baidu https",
			url:  "https://pan.baidu.com/s/1A_bc-DEF",
			want: "1A_bc-DEF",
		},
		{
			name: "baidu http with password",
			url:  "http://pan.baidu.com/s/1AbcDef?pwd=abcd",
			want: "1AbcDef",
		},
		{
			name:    "unsupported host",
			url:     "https://example.com/s/abc123",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShareKey(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShareKey(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ShareKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestQueryPassword(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with password", "https://pan.quark.cn/s/abc?pwd=test", "test"},
		{"no password", "https://pan.quark.cn/s/abc", ""},
		{"other params", "https://pan.baidu.com/s/abc?from=share", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueryPassword(tt.url); got != tt.want {
				t.Errorf("QueryPassword(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"query", "https://pan.baidu.com/s/1abc?pwd=abcd", "https://pan.baidu.com/s/1abc"},
		{"fragment", "https://pan.baidu.com/s/1abc#top", "https://pan.baidu.com/s/1abc"},
		{"plain", "https://pan.baidu.com/s/1abc", "https://pan.baidu.com/s/1abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripQuery(tt.url); got != tt.want {
				t.Errorf("StripQuery(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidShareURL(t *testing.T) {
	if !IsValidShareURL("https://pan.quark.cn/s/abc123") {
		t.Error("expected quark URL to be valid")
	}
	if !IsValidShareURL("https://pan.baidu.com/s/1abc-_def") {
		t.Error("expected baidu URL to be valid")
	}
	if IsValidShareURL("https://drive.google.com/file/d/abc") {
		t.Error("expected foreign URL to be invalid")
	}
}
