// Package operator buckets client names into the national operator brands
// used for map coloring.
package operator

import "strings"

// Operator is one brand bucket with its map palette.
type Operator struct {
	Key        string
	Label      string
	Color      string
	PulseColor string
}

var palette = map[string]Operator{
	"telkomsel": {Key: "telkomsel", Label: "Telkomsel", Color: "#e4002b", PulseColor: "#ff6b81"},
	"telkom":    {Key: "telkom", Label: "Telkom", Color: "#00529b", PulseColor: "#4d8fcc"},
	"ioh":       {Key: "ioh", Label: "Indosat Ooredoo Hutchison", Color: "#ffc600", PulseColor: "#ffe066"},
	"xlsmart":   {Key: "xlsmart", Label: "XLSmart", Color: "#8b1a8b", PulseColor: "#c75fc7"},
}

// paletteOrder fixes legend ordering.
var paletteOrder = []string{"telkomsel", "telkom", "ioh", "xlsmart"}

// rules are evaluated in order; "telkomsel" must win before the bare
// "telkom" substring matches it.
var rules = []struct {
	key     string
	needles []string
}{
	{"telkomsel", []string{"telkomsel"}},
	{"telkom", []string{"telkom"}},
	{"ioh", []string{"ioh", "indosat", "ooredoo", "hutchison", "tri "}},
	{"xlsmart", []string{"xlsmart", "xl", "smartfren", "smart", "axis"}},
}

// Classify maps a client name to an operator bucket. Unrecognized names
// fall back to telkom, the incumbent default in the source feeds.
func Classify(clientName string) Operator {
	name := strings.ToLower(strings.TrimSpace(clientName))
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(name, needle) {
				return palette[r.key]
			}
		}
	}
	return palette["telkom"]
}

// Palette returns every operator bucket in legend order.
func Palette() []Operator {
	out := make([]Operator, 0, len(paletteOrder))
	for _, key := range paletteOrder {
		out = append(out, palette[key])
	}
	return out
}
