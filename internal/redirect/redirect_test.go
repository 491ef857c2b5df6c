package redirect

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url param",
			in:   "https://news.google.com/rss/articles/abc?url=https%3A%2F%2Fwww.cbc.ca%2Fnews%2Fstory&oc=5",
			want: "https://www.cbc.ca/news/story",
		},
		{
			name: "unescaped param",
			in:   "https://www.google.com/url?sa=t&url=https://globalnews.ca/news/1/",
			want: "https://globalnews.ca/news/1/",
		},
		{
			name: "opaque article token passes through",
			in:   "https://news.google.com/rss/articles/CBMiK2h0dHBz?oc=5",
			want: "https://news.google.com/rss/articles/CBMiK2h0dHBz?oc=5",
		},
		{
			name: "plain url",
			in:   "https://www.cbc.ca/news/canada/calgary/story-1.234",
			want: "https://www.cbc.ca/news/canada/calgary/story-1.234",
		},
		{
			name: "empty url param",
			in:   "https://example.com/r?url=",
			want: "https://example.com/r?url=",
		},
		{
			name: "non-http target",
			in:   "https://example.com/r?url=javascript:alert(1)",
			want: "https://example.com/r?url=javascript:alert(1)",
		},
		{
			name: "relative target",
			in:   "https://example.com/r?url=/local/path",
			want: "https://example.com/r?url=/local/path",
		},
		{
			name: "nested wrappers",
			in:   "https://a.example/r?url=" + "https%3A%2F%2Fb.example%2Fr%3Furl%3Dhttps%253A%252F%252Fc.example%252Fstory",
			want: "https://c.example/story",
		},
		{name: "garbage", in: "%%%not a url", want: "%%%not a url"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.in); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeIdempotent(t *testing.T) {
	inputs := []string{
		"https://news.google.com/rss/articles/abc?url=https%3A%2F%2Fwww.cbc.ca%2Fnews",
		"https://a.example/r?url=https%3A%2F%2Fb.example%2Fr%3Furl%3Dhttps%253A%252F%252Fc.example%252Fstory",
		"https://www.cbc.ca/news",
		"https://example.com/r?url=",
		"not a url at all",
		"",
	}
	for _, in := range inputs {
		once := Decode(in)
		if twice := Decode(once); twice != once {
			t.Errorf("Decode not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
