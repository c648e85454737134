package provider

import (
	"testing"

	"github.com/hxlong2024/LinkChanger/internal"
)

func TestExtractQuarkLink(t *testing.T) {
	e := NewExtractor()
	text := "看这个资源 https://pan.quark.cn/s/abc123def?pwd=wxyz 很不错"

	matches := e.Extract(text)
	if len(matches) != 1 {
		t.Fatalf("Extract() returned %d matches, want 1", len(matches))
	}

	m := matches[0]
	if m.Provider != internal.ProviderQuark {
		t.Errorf("Provider = %v, want quark", m.Provider)
	}
	if m.Password != "wxyz" {
		t.Errorf("Password = %q, want wxyz", m.Password)
	}
	if text[m.Start:m.End] != m.MatchedText {
		t.Errorf("span [%d:%d] = %q, want %q", m.Start, m.End, text[m.Start:m.End], m.MatchedText)
	}
}

func TestExtractBaiduTrailingPasscode(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "pwd parameter",
			text: "链接 https://pan.baidu.com/s/1AbcDef?pwd=a1b2",
			want: "a1b2",
		},
		{
			name: "chinese label",
			text: "链接 https://pan.baidu.com/s/1AbcDef 提取码: c3d4",
			want: "c3d4",
		},
		{
			name: "fullwidth colon",
			text: "https://pan.baidu.com/s/1AbcDef 提取码：e5f6",
			want: "e5f6",
		},
		{
			name: "bare whitespace",
			text: "https://pan.baidu.com/s/1AbcDef g7h8 后面还有字",
			want: "g7h8",
		},
		{
			name: "no passcode",
			text: "https://pan.baidu.com/s/1AbcDef",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := e.Extract(tt.text)
			if len(matches) != 1 {
				t.Fatalf("Extract() returned %d matches, want 1", len(matches))
			}
			if matches[0].Password != tt.want {
				t.Errorf("Password = %q, want %q", matches[0].Password, tt.want)
			}
		})
	}
}

func TestExtractMixedOrdered(t *testing.T) {
	e := NewExtractor()
	text := "先看 https://pan.baidu.com/s/1first?pwd=aaaa 然后 " +
		"https://pan.quark.cn/s/second 最后 https://pan.baidu.com/s/1third"

	matches := e.Extract(text)
	if len(matches) != 3 {
		t.Fatalf("Extract() returned %d matches, want 3", len(matches))
	}

	wantProviders := []internal.Provider{internal.ProviderBaidu, internal.ProviderQuark, internal.ProviderBaidu}
	for i, m := range matches {
		if m.Provider != wantProviders[i] {
			t.Errorf("match %d provider = %v, want %v", i, m.Provider, wantProviders[i])
		}
		if i > 0 && matches[i-1].End > m.Start {
			t.Errorf("match %d span overlaps previous", i)
		}
	}
}

func TestExtractDuplicateLiteral(t *testing.T) {
	e := NewExtractor()
	text := "https://pan.quark.cn/s/same 和 https://pan.quark.cn/s/same"

	matches := e.Extract(text)
	if len(matches) != 2 {
		t.Fatalf("Extract() returned %d matches, want 2", len(matches))
	}
	if matches[0].Start == matches[1].Start {
		t.Error("duplicate literals must keep distinct spans")
	}
}

func TestExtractNoLinks(t *testing.T) {
	e := NewExtractor()
	if matches := e.Extract("没有任何链接的文本"); len(matches) != 0 {
		t.Errorf("Extract() returned %d matches, want 0", len(matches))
	}
}
