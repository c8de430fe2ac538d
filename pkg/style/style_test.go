package style

import (
	"reflect"
	"strings"
	"testing"
)

func TestToken(t *testing.T) {
	a := Token("x/card")
	b := Token("x/card")
	c := Token("x/cardList")

	if a != b {
		t.Errorf("Token is not stable: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("distinct identities share a token: %q", a)
	}
	if !strings.HasPrefix(a, TokenPrefix) {
		t.Errorf("token %q missing prefix %q", a, TokenPrefix)
	}
	if len(a) != len(TokenPrefix)+12 {
		t.Errorf("token length = %d, want %d hex digits after the prefix", len(a), 12)
	}
}

func TestHostToken(t *testing.T) {
	token := Token("x/card")
	host := HostToken(token)
	if host != token+"-host" {
		t.Errorf("HostToken(%q) = %q, want %q", token, host, token+"-host")
	}
}

func TestParseDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []Declaration
	}{
		{
			name:  "single declaration",
			value: "color: red",
			want:  []Declaration{{Property: "color", Value: "red"}},
		},
		{
			name:  "order preserved",
			value: "background:blue!important;color:red;opacity:0.5 !important",
			want: []Declaration{
				{Property: "background", Value: "blue", Important: true},
				{Property: "color", Value: "red"},
				{Property: "opacity", Value: "0.5", Important: true},
			},
		},
		{
			name:  "trailing semicolon",
			value: "margin: 0;",
			want:  []Declaration{{Property: "margin", Value: "0"}},
		},
		{
			name:  "url value keeps its colon and semicolon",
			value: `background: url("a;b:c.png"); color: red`,
			want: []Declaration{
				{Property: "background", Value: `url("a;b:c.png")`},
				{Property: "color", Value: "red"},
			},
		},
		{
			name:  "data uri in unquoted url",
			value: "background: url(data:image/png;base64,iVBOR); color: red",
			want: []Declaration{
				{Property: "background", Value: "url(data:image/png;base64,iVBOR)"},
				{Property: "color", Value: "red"},
			},
		},
		{
			name:  "important is case insensitive",
			value: "color: red !IMPORTANT",
			want:  []Declaration{{Property: "color", Value: "red", Important: true}},
		},
		{
			name:  "bang inside quotes is content",
			value: `content: "wow!"`,
			want:  []Declaration{{Property: "content", Value: `"wow!"`}},
		},
		{
			name:  "property names lowercase",
			value: "COLOR: red",
			want:  []Declaration{{Property: "color", Value: "red"}},
		},
		{
			name:  "custom property keeps its case",
			value: "--mainColor: red",
			want:  []Declaration{{Property: "--mainColor", Value: "red"}},
		},
		{
			name:  "empty fragments dropped",
			value: ";;color: red;;",
			want:  []Declaration{{Property: "color", Value: "red"}},
		},
		{
			name:  "value-less property dropped",
			value: "color:; margin: 0",
			want:  []Declaration{{Property: "margin", Value: "0"}},
		},
		{
			name:  "lone important dropped",
			value: "color: !important",
			want:  nil,
		},
		{
			name:  "empty input",
			value: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDeclarations(tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDeclarations(%q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}
