package dialect

// Huawei VRP-family switches. The marker list is ordered; scanning stops at
// the first match.
var huawei = &Dialect{
	Name:           "huawei",
	ErrorMarkers:   []string{"Error", "Wrong", "Incomplete", "Unrecognized"},
	PromptSuffixes: []string{">", "]", "#"},
	QueryPrefix:    "dis",
	ConfigEnter:    "system-view",
	ConfigExit:     "return",
	QuitCommand:    "q",
	SaveCommand:    "save",
	SaveConfirm:    "Y",
}

func init() {
	Register(huawei)
}
