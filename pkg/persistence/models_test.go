package persistence

import "testing"

func TestParseFormat(t *testing.T) {
	cases := []struct {
		name, path string
		want       Format
		wantErr    bool
	}{
		{"", "report.json", FormatJSON, false},
		{"", "report.yml", FormatYAML, false},
		{"", "report", FormatJSON, false},
		{"YAML", "report.json", FormatYAML, false},
		{"yml", "", FormatYAML, false},
		{"dummy", "", FormatDummy, false},
		{"xml", "", "", true},
	}
	for _, c := range cases {
		got, err := ParseFormat(c.name, c.path)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseFormat(%q, %q) error = %v, wantErr %t", c.name, c.path, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ParseFormat(%q, %q) = %q, want %q", c.name, c.path, got, c.want)
		}
	}
}
