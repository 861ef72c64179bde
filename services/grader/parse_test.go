package gradersvc

import (
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantHead    string
		wantContent string
	}{
		{
			name: "marked head elements and the exercise element",
			body: `<html><head>` +
				`<script data-exercise src="/static/exercise.js"></script>` +
				`<link rel="stylesheet" href="/static/plain.css">` +
				`<style data-exercise>.q{color:red}</style>` +
				`</head><body><nav>menu</nav><div id="exercise"><p>Solve it.</p></div></body></html>`,
			wantHead: `<script data-exercise="" src="/static/exercise.js"></script>` + "\n" +
				`<style data-exercise="">.q{color:red}</style>`,
			wantContent: "<p>Solve it.</p>",
		},
		{
			name:        "chapter element",
			body:        `<html><body><div id="chapter"><h1>Loops</h1></div></body></html>`,
			wantContent: "<h1>Loops</h1>",
		},
		{
			name:        "exercise wins over document order",
			body:        `<html><body><div id="content">c</div><div id="exercise">e</div></body></html>`,
			wantContent: "e",
		},
		{
			name:        "whole body without a known id",
			body:        `<p>An essay question.</p>`,
			wantContent: "<p>An essay question.</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParsePage(): %v", err)
			}
			if page.Head != tt.wantHead {
				t.Errorf("Head = %q, want %q", page.Head, tt.wantHead)
			}
			if page.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", page.Content, tt.wantContent)
			}
		})
	}
}
