package request

// Option keys recognised in an upload option bag.
const (
	KeyURL                      = "url"
	KeyPath                     = "path"
	KeyMethod                   = "method"
	KeyType                     = "type"
	KeyField                    = "field"
	KeyCustomUploadID           = "customUploadId"
	KeyParameters               = "parameters"
	KeyHeaders                  = "headers"
	KeyNotification             = "notification"
	KeyMaxRetries               = "maxRetries"
	KeyFollowRedirects          = "followRedirects"
	KeyFollowSSLRedirects       = "followSslRedirects"
	KeyRetryOnConnectionFailure = "retryOnConnectionFailure"
	KeyConnectTimeout           = "connectTimeout"
	KeyReadTimeout              = "readTimeout"
	KeyWriteTimeout             = "writeTimeout"
	KeyAppGroup                 = "appGroup"
)

// Options is the untyped option bag supplied by callers. Values follow JSON
// shapes (string, bool, number, map, slice) so a bag survives persistence
// unchanged.
type Options map[string]any

// Clone returns a deep copy of the bag. Nested maps and slices are copied so
// the clone can be mutated without touching the caller's value.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for key, value := range o {
		out[key] = cloneValue(value)
	}
	return out
}

// CustomID returns the caller-supplied upload id, if any.
func (o Options) CustomID() (string, bool) {
	id, ok := o[KeyCustomUploadID].(string)
	return id, ok && id != ""
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = cloneValue(v)
		}
		return out
	case Options:
		return typed.Clone()
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = cloneValue(v)
		}
		return out
	default:
		return value
	}
}

// AssignID returns a copy of opts whose customUploadId is set, together with
// that id. A caller-supplied non-empty string id is kept; anything else is
// replaced by a fresh id so queued entries carry a stable identity before they
// are persisted.
func AssignID(opts Options) (Options, string) {
	stamped := opts.Clone()
	if stamped == nil {
		stamped = Options{}
	}
	if id, ok := stamped.CustomID(); ok {
		return stamped, id
	}
	id := NewID()
	stamped[KeyCustomUploadID] = id
	return stamped, id
}
