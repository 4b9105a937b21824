package request

import "time"

// Kind selects how the file is placed in the HTTP body.
type Kind string

const (
	// KindRaw sends the file bytes as the whole request body.
	KindRaw Kind = "raw"
	// KindMultipart sends the file as one part of a multipart/form-data body.
	KindMultipart Kind = "multipart"
)

// NotificationSpec describes how an upload is announced. Hoist renders it via
// ntfy; empty titles and messages fall back to generated text.
type NotificationSpec struct {
	Enabled            bool   `json:"enabled"`
	EnableRingTone     bool   `json:"enableRingTone,omitempty"`
	OnProgressTitle    string `json:"onProgressTitle,omitempty"`
	OnProgressMessage  string `json:"onProgressMessage,omitempty"`
	OnCompleteTitle    string `json:"onCompleteTitle,omitempty"`
	OnCompleteMessage  string `json:"onCompleteMessage,omitempty"`
	OnErrorTitle       string `json:"onErrorTitle,omitempty"`
	OnErrorMessage     string `json:"onErrorMessage,omitempty"`
	OnCancelledTitle   string `json:"onCancelledTitle,omitempty"`
	OnCancelledMessage string `json:"onCancelledMessage,omitempty"`
	AutoClear          bool   `json:"autoClear,omitempty"`
	Channel            string `json:"notificationChannel,omitempty"`
}

// Request is a normalized upload request ready for the transport.
type Request struct {
	ID         string            `json:"id" validate:"required"`
	URL        string            `json:"url" validate:"required"`
	Path       string            `json:"path" validate:"required"`
	Method     string            `json:"method" validate:"required"`
	Kind       Kind              `json:"type" validate:"oneof=raw multipart"`
	Field      string            `json:"field,omitempty" validate:"required_if=Kind multipart"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`

	Notification NotificationSpec `json:"notification"`

	MaxRetries               int           `json:"maxRetries" validate:"gte=0,lte=10"`
	FollowRedirects          bool          `json:"followRedirects"`
	FollowSSLRedirects       bool          `json:"followSslRedirects"`
	RetryOnConnectionFailure bool          `json:"retryOnConnectionFailure"`
	ConnectTimeout           time.Duration `json:"connectTimeout" validate:"gte=0"`
	ReadTimeout              time.Duration `json:"readTimeout" validate:"gte=0"`
	WriteTimeout             time.Duration `json:"writeTimeout" validate:"gte=0"`
	AppGroup                 string        `json:"appGroup,omitempty"`
}

// Defaults holds the transport tuning applied when an option bag omits it.
type Defaults struct {
	MaxRetries     int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultTuning returns the built-in transport tuning.
func DefaultTuning() Defaults {
	return Defaults{
		MaxRetries:     2,
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
	}
}
