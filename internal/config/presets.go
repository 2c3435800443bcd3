package config

import "sort"

// Presets holds named configurations per model. Entries only set what
// differs from DefaultConfig; GetPreset fills in the rest.
var Presets = map[string]map[string]func(*Config){
	"beattie": {
		"constant": func(c *Config) {
			c.Protocol = ProtocolConfig{Kind: "constant", Voltage: -80}
			c.Duration = 1000
		},
		"sine": func(c *Config) {
			c.Protocol = ProtocolConfig{Kind: "sine"}
			c.Duration = 8000
		},
		"steps": func(c *Config) {
			c.Protocol = ProtocolConfig{Kind: "steps", Segments: []SegmentConfig{
				{Until: 250, Voltage: -80},
				{Until: 300, Voltage: -120},
				{Until: 500, Voltage: -80},
				{Until: 1500, Voltage: 40},
				{Until: 2000, Voltage: -120},
				{Until: 3000, Voltage: -80},
			}}
			c.Duration = 3000
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	apply, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Model = model
	apply(cfg)
	return cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListModels returns the models that have presets.
func ListModels() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
