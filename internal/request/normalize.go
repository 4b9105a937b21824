package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize validates opts and produces a Request using the built-in tuning
// defaults.
func Normalize(opts Options) (Request, error) {
	return NormalizeWith(opts, DefaultTuning())
}

// NormalizeWith validates opts and produces a Request, filling omitted tuning
// fields from defaults. The returned error is always a *ValidationError.
func NormalizeWith(opts Options, defaults Defaults) (Request, error) {
	req := Request{
		Method:                   "POST",
		Kind:                     KindRaw,
		MaxRetries:               defaults.MaxRetries,
		FollowRedirects:          true,
		FollowSSLRedirects:       true,
		RetryOnConnectionFailure: true,
		ConnectTimeout:           defaults.ConnectTimeout,
		ReadTimeout:              defaults.ReadTimeout,
		WriteTimeout:             defaults.WriteTimeout,
		Notification:             NotificationSpec{Enabled: true},
	}

	for _, key := range []string{KeyURL, KeyPath} {
		raw, ok := opts[key]
		if !ok || raw == nil {
			return Request{}, missingField(key, "missing '%s' field", key)
		}
		value, ok := raw.(string)
		if !ok {
			return Request{}, missingField(key, "%s must be a string", key)
		}
		if key == KeyURL {
			req.URL = strings.TrimSpace(value)
		} else {
			req.Path = value
		}
	}

	headers, _, err := stringMapOption(opts, KeyHeaders)
	if err != nil {
		return Request{}, err
	}
	req.Headers = headers

	if err := mergeNotification(&req.Notification, opts); err != nil {
		return Request{}, err
	}

	parameters, hasParameters, err := stringMapOption(opts, KeyParameters)
	if err != nil {
		return Request{}, err
	}

	if raw, ok := opts[KeyType]; ok {
		value, isString := raw.(string)
		if !isString || (Kind(value) != KindRaw && Kind(value) != KindMultipart) {
			return Request{}, invalidEnum(KeyType, "type should be string: raw or multipart")
		}
		req.Kind = Kind(value)
	}

	if req.Kind == KindMultipart {
		raw, ok := opts[KeyField]
		if !ok || raw == nil {
			return Request{}, missingField(KeyField, "field is required field for multipart type")
		}
		field, isString := raw.(string)
		if !isString {
			return Request{}, missingField(KeyField, "field must be string")
		}
		req.Field = field
	}

	if hasParameters {
		if req.Kind == KindRaw {
			return Request{}, invalidCombination(KeyParameters, "parameters supported only in multipart type")
		}
		req.Parameters = parameters
	}

	if raw, ok := opts[KeyMethod]; ok && raw != nil {
		method, isString := raw.(string)
		if !isString {
			return Request{}, invalidType(KeyMethod, "method must be a string")
		}
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			req.Method = method
		}
	}

	if raw, ok := opts[KeyCustomUploadID]; ok && raw != nil {
		id, isString := raw.(string)
		if !isString {
			return Request{}, invalidType(KeyCustomUploadID, "customUploadId must be a string")
		}
		req.ID = id
	}
	if req.ID == "" {
		req.ID = NewID()
	}

	if err := applyTuning(&req, opts); err != nil {
		return Request{}, err
	}

	if err := validate.Struct(req); err != nil {
		return Request{}, translateValidatorError(err)
	}
	return req, nil
}

func applyTuning(req *Request, opts Options) error {
	if value, ok, err := intOption(opts, KeyMaxRetries); err != nil {
		return err
	} else if ok {
		req.MaxRetries = value
	}
	for key, dst := range map[string]*bool{
		KeyFollowRedirects:          &req.FollowRedirects,
		KeyFollowSSLRedirects:       &req.FollowSSLRedirects,
		KeyRetryOnConnectionFailure: &req.RetryOnConnectionFailure,
	} {
		value, ok, err := boolOption(opts, key)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}
	for key, dst := range map[string]*time.Duration{
		KeyConnectTimeout: &req.ConnectTimeout,
		KeyReadTimeout:    &req.ReadTimeout,
		KeyWriteTimeout:   &req.WriteTimeout,
	} {
		seconds, ok, err := intOption(opts, key)
		if err != nil {
			return err
		}
		if ok {
			*dst = time.Duration(seconds) * time.Second
		}
	}
	if raw, ok := opts[KeyAppGroup]; ok && raw != nil {
		group, isString := raw.(string)
		if !isString {
			return invalidType(KeyAppGroup, "appGroup must be a string")
		}
		req.AppGroup = group
	}
	return nil
}

func mergeNotification(spec *NotificationSpec, opts Options) error {
	raw, ok := opts[KeyNotification]
	if !ok || raw == nil {
		return nil
	}
	values, isMap := asMap(raw)
	if !isMap {
		return invalidType(KeyNotification, "notification must be a hash")
	}
	for key, dst := range map[string]*bool{
		"enabled":        &spec.Enabled,
		"enableRingTone": &spec.EnableRingTone,
		"autoClear":      &spec.AutoClear,
	} {
		value, present := values[key]
		if !present || value == nil {
			continue
		}
		b, isBool := value.(bool)
		if !isBool {
			return invalidType(KeyNotification+"."+key, "notification.%s must be a boolean", key)
		}
		*dst = b
	}
	for key, dst := range map[string]*string{
		"onProgressTitle":     &spec.OnProgressTitle,
		"onProgressMessage":   &spec.OnProgressMessage,
		"onCompleteTitle":     &spec.OnCompleteTitle,
		"onCompleteMessage":   &spec.OnCompleteMessage,
		"onErrorTitle":        &spec.OnErrorTitle,
		"onErrorMessage":      &spec.OnErrorMessage,
		"onCancelledTitle":    &spec.OnCancelledTitle,
		"onCancelledMessage":  &spec.OnCancelledMessage,
		"notificationChannel": &spec.Channel,
	} {
		value, present := values[key]
		if !present || value == nil {
			continue
		}
		s, isString := value.(string)
		if !isString {
			return invalidType(KeyNotification+"."+key, "notification.%s must be a string", key)
		}
		*dst = s
	}
	return nil
}

// stringMapOption reads a string-to-string map. The second result reports
// whether the key was present at all.
func stringMapOption(opts Options, key string) (map[string]string, bool, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	if typed, isTyped := raw.(map[string]string); isTyped {
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, true, nil
	}
	values, isMap := asMap(raw)
	if !isMap {
		return nil, true, invalidType(key, "%s must be a hash", key)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		s, isString := v.(string)
		if !isString {
			return nil, true, invalidType(key, "%s must be string key/values. Value was invalid for '%s'", key, k)
		}
		out[k] = s
	}
	return out, true, nil
}

func asMap(raw any) (map[string]any, bool) {
	switch typed := raw.(type) {
	case map[string]any:
		return typed, true
	case Options:
		return typed, true
	default:
		return nil, false
	}
}

func boolOption(opts Options, key string) (bool, bool, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return false, false, nil
	}
	value, isBool := raw.(bool)
	if !isBool {
		return false, true, invalidType(key, "%s must be a boolean", key)
	}
	return value, true, nil
}

func intOption(opts Options, key string) (int, bool, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch typed := raw.(type) {
	case int:
		return typed, true, nil
	case int32:
		return int(typed), true, nil
	case int64:
		return int(typed), true, nil
	case float64:
		if typed != math.Trunc(typed) {
			return 0, true, invalidType(key, "%s must be a whole number", key)
		}
		return int(typed), true, nil
	case json.Number:
		value, err := typed.Int64()
		if err != nil {
			return 0, true, invalidType(key, "%s must be a whole number", key)
		}
		return int(value), true, nil
	default:
		return 0, true, invalidType(key, "%s must be a number", key)
	}
}

func translateValidatorError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return invalidType("", "invalid upload request: %v", err)
	}
	fe := fieldErrors[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return missingField(field, "missing '%s' field", field)
	case "oneof":
		return invalidEnum(field, "%s must be one of: %s", field, fe.Param())
	default:
		return invalidType(field, "%s failed %s", field, describeConstraint(fe))
	}
}

func describeConstraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}
