package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldPeriod    = "period"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldEventID   = "event_id"
	FieldKind      = "kind"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBot      = "bot"
	ComponentStore    = "store"
	ComponentPayments = "payments"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentExport   = "export"
)
