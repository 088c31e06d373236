package domain

// Color names one entry of the fixed highlight palette.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
)

// Swatch holds the two shades of a palette color: a light one used behind
// highlighted text and a saturated one used for marker dots and underlines.
type Swatch struct {
	Name  Color
	Label string
	Mark  string
	Dot   string
}

// Palette is ordered the way the color picker shows it.
var Palette = []Swatch{
	{Name: ColorYellow, Label: "Yellow", Mark: "#fef08a", Dot: "#eab308"},
	{Name: ColorBlue, Label: "Blue", Mark: "#bfdbfe", Dot: "#3b82f6"},
	{Name: ColorGreen, Label: "Green", Mark: "#bbf7d0", Dot: "#10b981"},
	{Name: ColorPurple, Label: "Purple", Mark: "#e9d5ff", Dot: "#a855f7"},
	{Name: ColorPink, Label: "Pink", Mark: "#fbcfe8", Dot: "#ec4899"},
}

// LookupColor returns the swatch for name.
func LookupColor(name string) (Swatch, bool) {
	for _, s := range Palette {
		if string(s.Name) == name {
			return s, true
		}
	}
	return Swatch{}, false
}

// SwatchFor returns the swatch for name, falling back to yellow.
func SwatchFor(name string) Swatch {
	if s, ok := LookupColor(name); ok {
		return s
	}
	return Palette[0]
}
