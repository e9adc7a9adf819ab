package render

import "fmt"

// Theme is the explicit palette used to draw a scene. Colors are hex strings.
type Theme struct {
	Name            string  `json:"name" yaml:"name" toml:"name"`
	Background      string  `json:"background" yaml:"background" toml:"background"`
	Grid            string  `json:"grid" yaml:"grid" toml:"grid"`
	GridSize        float64 `json:"gridSize" yaml:"gridSize" toml:"grid_size"`
	NodeFill        string  `json:"nodeFill" yaml:"nodeFill" toml:"node_fill"`
	NodeStroke      string  `json:"nodeStroke" yaml:"nodeStroke" toml:"node_stroke"`
	FrameFill       string  `json:"frameFill" yaml:"frameFill" toml:"frame_fill"`
	FrameStroke     string  `json:"frameStroke" yaml:"frameStroke" toml:"frame_stroke"`
	StickyFill      string  `json:"stickyFill" yaml:"stickyFill" toml:"sticky_fill"`
	Selected        string  `json:"selected" yaml:"selected" toml:"selected"`
	Edge            string  `json:"edge" yaml:"edge" toml:"edge"`
	Guide           string  `json:"guide" yaml:"guide" toml:"guide"`
	Suggestion      string  `json:"suggestion" yaml:"suggestion" toml:"suggestion"`
	SelectionFill   string  `json:"selectionFill" yaml:"selectionFill" toml:"selection_fill"`
	SelectionStroke string  `json:"selectionStroke" yaml:"selectionStroke" toml:"selection_stroke"`
}

// Light is the default theme.
func Light() Theme {
	return Theme{
		Name:            "light",
		Background:      "#f8fafc",
		Grid:            "#e2e8f0",
		GridSize:        20,
		NodeFill:        "#ffffff",
		NodeStroke:      "#94a3b8",
		FrameFill:       "#f1f5f9",
		FrameStroke:     "#64748b",
		StickyFill:      "#fef08a",
		Selected:        "#3b82f6",
		Edge:            "#64748b",
		Guide:           "#ec4899",
		Suggestion:      "#8b5cf6",
		SelectionFill:   "#3b82f626",
		SelectionStroke: "#3b82f6",
	}
}

// Dark is the dark theme.
func Dark() Theme {
	return Theme{
		Name:            "dark",
		Background:      "#0f172a",
		Grid:            "#1e293b",
		GridSize:        20,
		NodeFill:        "#1e293b",
		NodeStroke:      "#475569",
		FrameFill:       "#111827",
		FrameStroke:     "#334155",
		StickyFill:      "#a16207",
		Selected:        "#60a5fa",
		Edge:            "#94a3b8",
		Guide:           "#f472b6",
		Suggestion:      "#a78bfa",
		SelectionFill:   "#60a5fa26",
		SelectionStroke: "#60a5fa",
	}
}

// ThemeByName returns a built-in theme.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "light":
		return Light(), nil
	case "dark":
		return Dark(), nil
	}
	return Theme{}, fmt.Errorf("render: unknown theme %q", name)
}
