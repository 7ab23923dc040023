package common

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvPort              = "PORT"
	EnvReadTimeout       = "READ_TIMEOUT"
	EnvWriteTimeout      = "WRITE_TIMEOUT"
	EnvModelDir          = "MODEL_DIR"
	EnvLogisticModelFile = "LOGISTIC_MODEL_FILE"
	EnvTreeModelFile     = "TREE_MODEL_FILE"
	EnvDecisionPolicy    = "DECISION_POLICY"
	EnvDataPath          = "DATA_PATH"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"
	EnvServerURL         = "LOAN_SERVER_URL"
)

// Configuration defaults
const (
	DefaultPort              = 8000
	DefaultLogisticModelFile = "loan_logistic_model.json"
	DefaultTreeModelFile     = "loan_tree_model.json"
	DefaultDecisionPolicy    = "averaged"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultServerURL         = "http://localhost:8000"
)

// Validation constants
const (
	MinPort    = 1
	MaxPort    = 65535
	MinTimeout = 1   // seconds
	MaxTimeout = 300 // seconds
)

// Headers
const (
	HeaderRequestID = "X-Request-ID"
)
