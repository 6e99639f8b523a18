package platform

// Record is the normalized success case for one scraped URL: field names
// mapped to string values. Insertion order is preserved so exported
// headers stay stable across items of a batch.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set stores a field value. Setting an existing field overwrites it
// without changing its position.
func (r *Record) Set(key, value string) *Record {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// Get returns the value for a field, or "" when absent.
func (r *Record) Get(key string) string {
	return r.values[key]
}

// Has reports whether the field is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// FailureKind classifies what went wrong for one URL.
type FailureKind string

const (
	// FailureRemote is a non-success response from a primary data source.
	FailureRemote FailureKind = "remote_error"
	// FailureAccessDenied is a private or inaccessible channel signal.
	FailureAccessDenied FailureKind = "access_denied"
	// FailureRateLimited is a rate-limit signal that exhausted its retry.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureInternal is any other error converted at the extractor boundary.
	FailureInternal FailureKind = "internal"
)

// Failure is the normalized failure case for one URL.
type Failure struct {
	URL     string
	Kind    FailureKind
	Message string
}

// Error renders the failure the way it is exported: a single human-readable
// cause string naming the URL.
func (f *Failure) Error() string {
	return f.Message
}

// Result is one output item of an extractor: either a Record or a Failure,
// never both.
type Result struct {
	Record  *Record
	Failure *Failure
}

// OK reports whether the result carries a record.
func (r Result) OK() bool {
	return r.Record != nil
}

// Success wraps a record as a result.
func Success(rec *Record) Result {
	return Result{Record: rec}
}

// Failed wraps a failure as a result.
func Failed(url string, kind FailureKind, message string) Result {
	return Result{Failure: &Failure{URL: url, Kind: kind, Message: message}}
}
