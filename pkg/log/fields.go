package log

// Standard field names for consistent logging across the console.
const (
	FieldError     = "error"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Outbound HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration"

	// Session fields
	FieldUserID   = "user_id"
	FieldRole     = "role"
	FieldStatus   = "status"
	FieldPrevious = "previous_status"
	FieldRedirect = "redirect"
	FieldEpisode  = "episode"

	// Resource fields
	FieldResource = "resource"
	FieldAction   = "action"
	FieldEntityID = "entity_id"
	FieldPage     = "page"
	FieldLimit    = "limit"
	FieldTotal    = "total"

	// Store fields
	FieldDriver = "driver"
	FieldKey    = "key"
)

// Component returns the conventional component field.
func Component(name string) Field {
	return String(FieldComponent, name)
}
