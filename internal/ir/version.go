package ir

// Version constants for the route schema format and engine.
const (
	// SchemaVersion is the route configuration format version.
	SchemaVersion = "1"

	// EngineVersion is the querystate engine version.
	EngineVersion = "0.1.0"
)
