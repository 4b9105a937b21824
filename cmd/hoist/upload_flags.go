package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hoist/internal/config"
	"hoist/internal/request"
)

// uploadFlags collects the option bag shared by `hoist upload` and
// `hoist queue add`.
type uploadFlags struct {
	url             string
	method          string
	kind            string
	field           string
	id              string
	headers         map[string]string
	parameters      map[string]string
	maxRetries      int
	noRedirects     bool
	noNotification  bool
	notificationTag string
}

func (f *uploadFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "", "Destination URL (http or https)")
	flags.StringVarP(&f.method, "method", "X", "", "HTTP method: POST, PUT, or PATCH (default POST)")
	flags.StringVarP(&f.kind, "type", "t", "", "Upload type: raw or multipart (default raw)")
	flags.StringVar(&f.field, "field", "", "Form field name for multipart uploads")
	flags.StringVar(&f.id, "id", "", "Custom upload id")
	flags.StringToStringVarP(&f.headers, "header", "H", nil, "Request header as key=value (repeatable)")
	flags.StringToStringVarP(&f.parameters, "param", "p", nil, "Multipart form parameter as key=value (repeatable)")
	flags.IntVar(&f.maxRetries, "max-retries", 0, "Retries after connection failures")
	flags.BoolVar(&f.noRedirects, "no-redirects", false, "Do not follow redirects")
	flags.BoolVar(&f.noNotification, "no-notify", false, "Suppress notifications for this upload")
	flags.StringVar(&f.notificationTag, "notify-channel", "", "Extra tag attached to notifications")
	_ = cmd.MarkFlagRequired("url")
}

// options builds the option bag for path. Only flags the user changed are
// included so daemon defaults still apply.
func (f *uploadFlags) options(cmd *cobra.Command, path string) (request.Options, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path is required")
	}
	if !strings.HasPrefix(path, "file://") {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		path = expanded
	}

	opts := request.Options{
		request.KeyURL:  strings.TrimSpace(f.url),
		request.KeyPath: path,
	}
	if f.method != "" {
		opts[request.KeyMethod] = strings.ToUpper(strings.TrimSpace(f.method))
	}
	if f.kind != "" {
		opts[request.KeyType] = strings.ToLower(strings.TrimSpace(f.kind))
	}
	if f.field != "" {
		opts[request.KeyField] = f.field
	}
	if f.id != "" {
		opts[request.KeyCustomUploadID] = strings.TrimSpace(f.id)
	}
	if len(f.headers) > 0 {
		opts[request.KeyHeaders] = f.headers
	}
	if len(f.parameters) > 0 {
		opts[request.KeyParameters] = f.parameters
	}
	if cmd.Flags().Changed("max-retries") {
		opts[request.KeyMaxRetries] = f.maxRetries
	}
	if f.noRedirects {
		opts[request.KeyFollowRedirects] = false
		opts[request.KeyFollowSSLRedirects] = false
	}
	if f.noNotification || f.notificationTag != "" {
		notification := map[string]any{"enabled": !f.noNotification}
		if f.notificationTag != "" {
			notification["notificationChannel"] = f.notificationTag
		}
		opts[request.KeyNotification] = notification
	}
	return opts, nil
}
