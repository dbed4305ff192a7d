package postprocessors

import "testing"

func TestWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses spaces", "daños   por\tagua", "daños por agua"},
		{"trims lines", "  línea uno  \n\tlínea dos ", "línea uno\nlínea dos"},
		{"crlf", "uno\r\ndos\rtres", "uno\ndos\ntres"},
		{"blank lines", "párrafo\n\n\n\n\notro", "párrafo\n\notro"},
		{"non-breaking space", "art.\u00a05", "art. 5"},
		{"empty", "   \n\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Whitespace{}).Apply(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDehyphenate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"las cober-\nturas incluidas", "las coberturas incluidas"},
		{"cober-\n   turas", "coberturas"},
		{"agua-\nLluvia", "agua-\nLluvia"},
		{"artículo 5-\n6", "artículo 5-\n6"},
		{"sin guion", "sin guion"},
	}

	for _, tt := range tests {
		if got := (Dehyphenate{}).Apply(tt.input); got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPageNumbers(t *testing.T) {
	input := "Coberturas\nPágina 3 de 12\npage 4\nPÁG. 5\n4/10\n3 de 12\nArtículo 12 del condicionado\n2024 fue un año"
	want := "Coberturas\n\n\n\n\n\nArtículo 12 del condicionado\n2024 fue un año"

	if got := (PageNumbers{}).Apply(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPageNumbers_KeepsAmounts(t *testing.T) {
	tests := []string{
		"Capital asegurado\n3000\neuros",
		"Franquicia:\n300",
		"Límite por siniestro\n  1500  \n",
		"Hasta 40 de lluvia por metro cuadrado",
	}
	for _, input := range tests {
		if got := (PageNumbers{}).Apply(input); got != input {
			t.Errorf("Apply(%q) = %q, want it unchanged", input, got)
		}
	}
}

func TestFilterNames(t *testing.T) {
	if (Whitespace{}).Name() != FilterWhitespace ||
		(Dehyphenate{}).Name() != FilterDehyphenate ||
		(PageNumbers{}).Name() != FilterPageNumbers {
		t.Error("filter names do not match their constants")
	}
}
