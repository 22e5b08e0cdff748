package theme

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResolveColor(t *testing.T) {
	palette := Palette{"primary": "#fff", "empty": ""}

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"token", "@primary", "#fff"},
		{"missing token", "@missing", "@missing"},
		{"empty palette entry", "@empty", "@empty"},
		{"literal", "#123456", "#123456"},
		{"number", 42, 42},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveColor(tt.value, palette); got != tt.want {
				t.Errorf("ResolveColor(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolveColor_NilPalette(t *testing.T) {
	if got := ResolveColorString("@primary", nil); got != "@primary" {
		t.Errorf("expected '@primary', got %q", got)
	}
}

func TestSynthesize_Empty(t *testing.T) {
	if css := Synthesize(nil, nil); css != "" {
		t.Errorf("expected empty stylesheet, got %q", css)
	}
	if css := Synthesize(&StyleOptions{}, Palette{"primary": "#000"}); css != "" {
		t.Errorf("expected empty stylesheet, got %q", css)
	}
}

func TestSynthesize_PaletteBackgrounds(t *testing.T) {
	css := Synthesize(nil, Palette{"background": "#111", "cardBackground": "#222"})
	want := "body{background:#111;}.card{background:#222;}"
	if css != want {
		t.Errorf("expected %q, got %q", want, css)
	}
}

func TestSynthesize_FullDocument(t *testing.T) {
	raw := `{
		"pageTitle": {"fontSize": "2rem", "color": "@primary", "fontFamily": "serif"},
		"cardSection": {"backgroundColor": "@accent", "borderWidth": "1px", "borderColor": "@missing"},
		"cardPoint": {"color": "#333"},
		"cardContainer": {"borderWidth": "2px", "borderRadius": "8px", "boxShadow": "0 1px 2px #000"}
	}`

	var styles StyleOptions
	if err := json.Unmarshal([]byte(raw), &styles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	palette := Palette{"primary": "#f00", "accent": "#0f0", "background": "#fafafa"}
	css := Synthesize(&styles, palette)

	want := "body{background:#fafafa;}" +
		".page-title{font-size:2rem;color:#f00;font-family:serif;}" +
		".card-header{background-color:#0f0;border-color:@missing;border-width:1px;border-style:solid;}" +
		".card-list li{color:#333;}" +
		".card{border-width:2px;border-style:solid;border-radius:8px;box-shadow:0 1px 2px #000;}"

	if css != want {
		t.Errorf("stylesheet mismatch\n got: %s\nwant: %s", css, want)
	}
}

func TestSynthesize_BorderWidthAlwaysSolid(t *testing.T) {
	styles := &StyleOptions{
		CardSection:   &Declarations{BorderWidth: "1px"},
		CardContainer: &Declarations{BorderWidth: "3px"},
	}
	css := Synthesize(styles, nil)

	if n := strings.Count(css, "border-width:"); n != 2 {
		t.Fatalf("expected 2 border-width declarations, got %d in %q", n, css)
	}
	if n := strings.Count(css, "border-style:solid;"); n != 2 {
		t.Errorf("expected border-style:solid after each border-width, got %d in %q", n, css)
	}
}

func TestSynthesize_IgnoresUnsupportedProperties(t *testing.T) {
	// boxShadow is only honoured on the card container.
	styles := &StyleOptions{PageTitle: &Declarations{BoxShadow: "0 0 1px red"}}
	if css := Synthesize(styles, nil); css != ".page-title{}" {
		t.Errorf("expected empty rule block, got %q", css)
	}
}

func TestSynthesize_NumericValues(t *testing.T) {
	styles := &StyleOptions{CardTitle: &Declarations{FontSize: float64(18), Color: float64(0)}}
	if css := Synthesize(styles, nil); css != ".card-title{font-size:18;}" {
		t.Errorf("unexpected stylesheet %q", css)
	}
}

func TestStyleOptions_UnmarshalTolerant(t *testing.T) {
	var styles StyleOptions
	err := json.Unmarshal([]byte(`{"pageTitle": "big", "cardTitle": {"color": "red"}, "unknown": {}}`), &styles)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if styles.PageTitle != nil {
		t.Error("expected non-object pageTitle to be ignored")
	}
	if styles.CardTitle == nil || styles.CardTitle.Color != "red" {
		t.Errorf("expected cardTitle color red, got %+v", styles.CardTitle)
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &styles); err != nil {
		t.Fatalf("expected array styles to be ignored, got %v", err)
	}
	if !styles.Empty() {
		t.Error("expected empty styles after decoding an array")
	}
}
