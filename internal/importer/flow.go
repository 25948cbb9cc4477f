// Package importer drives the bulk import of a spreadsheet or CSV file: the
// file is uploaded as-is, the server reports its column headers, the user
// maps required fields to headers and the server processes the file.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/stockdesk/stockdesk/internal/api"
)

// State is a step of the import flow.
type State int

// Import states.
const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
	StateHeadersReceived
	StateMappingChosen
	StateProcessing
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateFileSelected:    "file selected",
	StateUploading:       "uploading",
	StateHeadersReceived: "headers received",
	StateMappingChosen:   "mapping chosen",
	StateProcessing:      "processing",
	StateSucceeded:       "succeeded",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MsgImportFailed is shown when the server gives no reason.
const MsgImportFailed = "The import could not be completed. Check the file and try again."

// Flow errors.
var (
	ErrInvalidTransition    = errors.New("invalid import step")
	ErrUnsupportedExtension = errors.New("unsupported file type")
	ErrMappingIncomplete    = errors.New("required fields are not mapped")
	ErrUnknownField         = errors.New("unknown import field")
	ErrUnknownHeader        = errors.New("header not found in uploaded file")
	ErrCancelled            = errors.New("import cancelled")
)

// Field is a logical record field a file column can be mapped to.
type Field struct {
	Name     string
	Label    string
	Required bool
}

// Spec describes what a screen accepts for import.
type Spec struct {
	Fields     []Field
	Extensions []string
}

// DefaultExtensions are accepted when a Spec lists none.
var DefaultExtensions = []string{".csv", ".xlsx", ".xls"}

// Required returns the names of the required fields in declaration order.
func (s Spec) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (s Spec) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Accepted returns the accepted file extensions.
func (s Spec) Accepted() []string {
	if len(s.Extensions) == 0 {
		return DefaultExtensions
	}
	return s.Extensions
}

// Backend is the part of the API client the flow needs.
type Backend interface {
	Upload(ctx context.Context, entity, filename string, r io.Reader) (api.UploadResult, error)
	Process(ctx context.Context, entity string, req api.ProcessRequest) (json.RawMessage, error)
}

// Flow is the import state machine for one entity. It is safe for
// concurrent use so the upload can run off the UI goroutine.
type Flow struct {
	mu sync.Mutex

	entity  string
	spec    Spec
	backend Backend
	logger  zerolog.Logger

	state    State
	filename string
	upload   api.UploadResult
	mapping  map[string]string
	result   json.RawMessage
	err      error
	message  string

	// epoch changes on Cancel so a late upload result is dropped.
	epoch uint64
}

// NewFlow returns an idle flow.
func NewFlow(entity string, spec Spec, backend Backend, logger zerolog.Logger) *Flow {
	return &Flow{
		entity:  entity,
		spec:    spec,
		backend: backend,
		logger:  logger.With().Str("component", "importer").Str("entity", entity).Logger(),
		mapping: map[string]string{},
	}
}

// SelectFile records the chosen file after checking its extension. It may
// be called again to pick a different file before uploading, or after a
// failure.
func (f *Flow) SelectFile(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateIdle, StateFileSelected, StateFailed:
	default:
		return f.invalid("select file")
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(f.spec.Accepted(), ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedExtension, filepath.Base(name),
			strings.Join(f.spec.Accepted(), ", "))
	}

	f.clear()
	f.filename = name
	f.state = StateFileSelected
	return nil
}

// Upload sends the selected file's contents and records the detected
// headers.
func (f *Flow) Upload(ctx context.Context, r io.Reader) error {
	f.mu.Lock()
	if f.state != StateFileSelected {
		defer f.mu.Unlock()
		return f.invalid("upload")
	}
	f.state = StateUploading
	epoch := f.epoch
	filename := f.filename
	f.mu.Unlock()

	res, err := f.backend.Upload(ctx, f.entity, filename, r)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return ErrCancelled
	}
	if err != nil {
		f.fail(err, "upload")
		return err
	}

	f.upload = res
	f.updateMappingState()
	f.logger.Debug().Str("file", filename).Str("file_id", res.FileID).Strs("headers", res.Headers).Msg("upload complete")
	return nil
}

// Assign maps a logical field to one detected header.
func (f *Flow) Assign(field, header string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateHeadersReceived && f.state != StateMappingChosen {
		return f.invalid("assign")
	}
	if _, ok := f.spec.field(field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if !slices.Contains(f.upload.Headers, header) {
		return fmt.Errorf("%w: %q", ErrUnknownHeader, header)
	}

	f.mapping[field] = header
	f.updateMappingState()
	return nil
}

// Unassign removes a field's mapping.
func (f *Flow) Unassign(field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateHeadersReceived && f.state != StateMappingChosen {
		return f.invalid("unassign")
	}
	delete(f.mapping, field)
	f.updateMappingState()
	return nil
}

// AutoMap assigns every unmapped field whose name or label matches a
// header, ignoring case, spaces and punctuation. It returns the number of
// fields assigned.
func (f *Flow) AutoMap() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateHeadersReceived && f.state != StateMappingChosen {
		return 0
	}

	assigned := 0
	for _, field := range f.spec.Fields {
		if _, ok := f.mapping[field.Name]; ok {
			continue
		}
		for _, h := range f.upload.Headers {
			key := normalizeHeader(h)
			if key == normalizeHeader(field.Name) || (field.Label != "" && key == normalizeHeader(field.Label)) {
				f.mapping[field.Name] = h
				assigned++
				break
			}
		}
	}
	f.updateMappingState()
	return assigned
}

// CanProcess reports whether every required field is mapped.
func (f *Flow) CanProcess() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateMappingChosen
}

// Missing returns the required fields that are not yet mapped.
func (f *Flow) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missing()
}

// Process asks the server to import the uploaded file with the current
// mapping. On failure Message holds the server's message verbatim, or a
// generic one.
func (f *Flow) Process(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	switch f.state {
	case StateMappingChosen:
	case StateHeadersReceived:
		missing := f.missing()
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMappingIncomplete, strings.Join(missing, ", "))
	default:
		defer f.mu.Unlock()
		return nil, f.invalid("process")
	}
	f.state = StateProcessing
	req := api.ProcessRequest{FileID: f.upload.FileID, Mapping: cloneMapping(f.mapping)}
	f.mu.Unlock()

	out, err := f.backend.Process(ctx, f.entity, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.fail(err, "process")
		return nil, err
	}
	f.result = out
	f.state = StateSucceeded
	f.logger.Info().Str("file_id", req.FileID).Int("fields", len(req.Mapping)).Msg("import processed")
	return out, nil
}

// Cancel discards all local state. It is refused once processing started;
// no server call is made.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateProcessing {
		return f.invalid("cancel")
	}
	f.epoch++
	f.clear()
	return nil
}

// Reset returns a finished flow to Idle. It is Cancel under another name for
// the terminal states.
func (f *Flow) Reset() error {
	return f.Cancel()
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Filename returns the selected file.
func (f *Flow) Filename() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filename
}

// Headers returns the headers the server detected.
func (f *Flow) Headers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.upload.Headers)
}

// Mapping returns a copy of the field to header mapping.
func (f *Flow) Mapping() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMapping(f.mapping)
}

// Spec returns the import spec.
func (f *Flow) Spec() Spec {
	return f.spec
}

// Result returns the server's answer to a successful process.
func (f *Flow) Result() json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns the error that moved the flow to Failed.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Message returns the user-facing failure message.
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *Flow) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, f.state)
}

func (f *Flow) fail(err error, op string) {
	f.state = StateFailed
	f.err = err
	f.message = failureMessage(err)
	f.logger.Error().Err(err).Str("operation", op).Str("file", f.filename).Msg("import step failed")
}

func (f *Flow) clear() {
	f.state = StateIdle
	f.filename = ""
	f.upload = api.UploadResult{}
	f.mapping = map[string]string{}
	f.result = nil
	f.err = nil
	f.message = ""
}

func (f *Flow) missing() []string {
	var out []string
	for _, name := range f.spec.Required() {
		if _, ok := f.mapping[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (f *Flow) updateMappingState() {
	if len(f.missing()) == 0 {
		f.state = StateMappingChosen
	} else {
		f.state = StateHeadersReceived
	}
}

func failureMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return api.UserMessage(err)
	}
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return api.MsgNetwork
	}
	return MsgImportFailed
}

func cloneMapping(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
