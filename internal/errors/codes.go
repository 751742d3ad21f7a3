// Package errors provides structured error handling for hybridsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and index lifecycle errors
//   - 3XX: Network errors (embedding, generation and reranking providers)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, cache and index lifecycle errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates provider connectivity errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission  = "ERR_202_FILE_PERMISSION"
	ErrCodeCorruptIndex    = "ERR_205_CORRUPT_INDEX"
	ErrCodeFileCorrupt     = "ERR_206_FILE_CORRUPT"
	ErrCodeIndexNotLoaded  = "ERR_207_INDEX_NOT_LOADED"
	ErrCodeCacheMissing    = "ERR_208_CACHE_MISSING"
	ErrCodeCacheLocked     = "ERR_209_CACHE_LOCKED"
	ErrCodeDatasetNotFound = "ERR_210_DATASET_NOT_FOUND"

	// Network errors (300-399)
	ErrCodeNetworkTimeout      = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable  = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeProviderRejected    = "ERR_303_PROVIDER_REJECTED"
	ErrCodeProviderCircuitOpen = "ERR_304_PROVIDER_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeInvalidTermArity  = "ERR_405_INVALID_TERM_ARITY"
	ErrCodeEmptyInput        = "ERR_406_EMPTY_INPUT"
	ErrCodeDuplicateDocument = "ERR_407_DUPLICATE_DOCUMENT"
	ErrCodeInvalidChunking   = "ERR_408_INVALID_CHUNKING"
	ErrCodeInvalidFusion     = "ERR_409_INVALID_FUSION"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed     = "ERR_505_INDEX_FAILED"
	ErrCodeRerankFailed    = "ERR_506_RERANK_FAILED"
	ErrCodeGenerateFailed  = "ERR_507_GENERATE_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_208_CACHE_MISSING" -> '2'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeFileCorrupt:
		return SeverityFatal
	case ErrCodeCacheMissing:
		// Recoverable by building the index.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
