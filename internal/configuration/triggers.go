package configuration

type AlertCommands struct {
	// EnterCmd is executed through a shell when the alert state is entered
	EnterCmd string `json:"enterCmd"`
	// LeaveCmd is executed through a shell when the alert state is left
	LeaveCmd string `json:"leaveCmd"`
}

type TriggerActions struct {
	Panic     AlertCommands `json:"panic"`
	Threshold AlertCommands `json:"threshold"`
}

type TriggerConfig struct {
	// Global commands fire on the aggregate alerting edge of a trigger
	Global TriggerActions `json:"global"`
	// Temps maps sensor ids to their per-sensor commands
	Temps map[string]TriggerActions `json:"temps"`
}
