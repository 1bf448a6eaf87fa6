package core

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeFloat denotes floating-point parameters.
	ParamTypeFloat ParamType = "float"
	// ParamTypeBool denotes boolean parameters.
	ParamTypeBool ParamType = "bool"
	// ParamTypeString denotes read-only text such as a device name.
	ParamTypeString ParamType = "string"
)

// Parameter describes a single value exposed by a simulation.
type Parameter struct {
	Key         string
	Label       string
	Type        ParamType
	Value       string
	Description string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name    string
	Params  []Parameter
	Summary string
}

// ParameterSnapshot captures the current values exposed by a sim.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// ParameterSnapshotProvider is implemented by sims that expose diagnostics.
type ParameterSnapshotProvider interface {
	Parameters() ParameterSnapshot
}

// IntParameterSetter allows HUD interactions to update integer parameters.
type IntParameterSetter interface {
	SetIntParameter(key string, value int) bool
}

// IntParameterGetter reads back integer parameters.
type IntParameterGetter interface {
	IntParameter(key string) (int, bool)
}
