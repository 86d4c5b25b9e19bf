package configuration

type MappingConfig struct {
	ID string `json:"id"`
	// Temps references sensor ids. The mapping speed is the max of the
	// normalized demands of these sensors.
	Temps []string `json:"temps"`
	// Fans references the fans driven by this mapping
	Fans []FanModifierConfig `json:"fans"`
}

type FanModifierConfig struct {
	Fan string `json:"fan"`
	// Modifier is a weight in (0,1] applied to the mapping speed
	Modifier float64 `json:"modifier"`
}
