package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldWorkspaceID  = "workspace_id"
	FieldDefinitionID = "definition_id"
	FieldOccurrence   = "occurrence"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldCreated      = "created"
	FieldSkipped      = "skipped"
	FieldCurrency     = "currency"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentReconciler = "reconciler"
	ComponentBudget     = "budget"
	ComponentStore      = "store"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpReconcile = "reconcile"
	OpOverview  = "overview"
	OpMigrate   = "migrate"
	OpPublish   = "publish"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
