package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/api"
)

type fakeBackend struct {
	headers    []string
	uploadErr  error
	processErr error

	uploaded  string
	processed *api.ProcessRequest
	block     chan struct{}
}

func (b *fakeBackend) Upload(_ context.Context, _ string, _ string, r io.Reader) (api.UploadResult, error) {
	if b.block != nil {
		<-b.block
	}
	raw, _ := io.ReadAll(r)
	b.uploaded = string(raw)
	if b.uploadErr != nil {
		return api.UploadResult{}, b.uploadErr
	}
	return api.UploadResult{FileID: "file-1", Headers: b.headers}, nil
}

func (b *fakeBackend) Process(_ context.Context, _ string, req api.ProcessRequest) (json.RawMessage, error) {
	b.processed = &req
	if b.processErr != nil {
		return nil, b.processErr
	}
	return json.RawMessage(`{"imported":2}`), nil
}

var inventorySpec = Spec{
	Fields: []Field{
		{Name: "serialNumber", Label: "Serial Number", Required: true},
		{Name: "productId", Label: "Product", Required: true},
		{Name: "quantity", Label: "Qty", Required: true},
		{Name: "notes"},
	},
	Extensions: []string{".csv", ".xlsx"},
}

func uploadedFlow(t *testing.T, b *fakeBackend) *Flow {
	t.Helper()
	f := NewFlow("inventory", inventorySpec, b, zerolog.Nop())
	require.NoError(t, f.SelectFile("stock.csv"))
	require.NoError(t, f.Upload(context.Background(), strings.NewReader("SN,Product,Qty\n")))
	return f
}

func TestFlow_HeadersScenario(t *testing.T) {
	b := &fakeBackend{headers: []string{"SN", "Product", "Qty"}}
	f := NewFlow("inventory", inventorySpec, b, zerolog.Nop())
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.SelectFile("stock.csv"))
	assert.Equal(t, StateFileSelected, f.State())

	require.NoError(t, f.Upload(context.Background(), strings.NewReader("SN,Product,Qty\n")))
	assert.Equal(t, StateHeadersReceived, f.State())
	assert.Equal(t, []string{"SN", "Product", "Qty"}, f.Headers())
	assert.Equal(t, "SN,Product,Qty\n", b.uploaded, "file sent unparsed")

	require.NoError(t, f.Assign("serialNumber", "SN"))
	require.NoError(t, f.Assign("productId", "Product"))
	assert.False(t, f.CanProcess())
	assert.Equal(t, []string{"quantity"}, f.Missing())

	require.NoError(t, f.Assign("quantity", "Qty"))
	assert.True(t, f.CanProcess())
	assert.Equal(t, StateMappingChosen, f.State())

	out, err := f.Process(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"imported":2}`, string(out))
	assert.Equal(t, StateSucceeded, f.State())
	require.NotNil(t, b.processed)
	assert.Equal(t, "file-1", b.processed.FileID)
	assert.Equal(t, map[string]string{"serialNumber": "SN", "productId": "Product", "quantity": "Qty"}, b.processed.Mapping)
}

func TestFlow_SelectFileRejectsExtension(t *testing.T) {
	f := NewFlow("inventory", inventorySpec, &fakeBackend{}, zerolog.Nop())

	err := f.SelectFile("stock.xls")
	require.ErrorIs(t, err, ErrUnsupportedExtension)
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.SelectFile("STOCK.XLSX"), "extension check ignores case")
}

func TestFlow_DefaultExtensions(t *testing.T) {
	f := NewFlow("users", Spec{}, &fakeBackend{}, zerolog.Nop())
	for _, name := range []string{"a.csv", "b.xlsx", "c.xls"} {
		require.NoError(t, f.SelectFile(name))
	}
	require.ErrorIs(t, f.SelectFile("d.pdf"), ErrUnsupportedExtension)
}

func TestFlow_ProcessWithMissingMapping(t *testing.T) {
	b := &fakeBackend{headers: []string{"SN", "Product", "Qty"}}
	f := uploadedFlow(t, b)
	require.NoError(t, f.Assign("serialNumber", "SN"))

	_, err := f.Process(context.Background())
	require.ErrorIs(t, err, ErrMappingIncomplete)
	assert.Nil(t, b.processed, "never reaches the server")
	assert.Equal(t, StateHeadersReceived, f.State())
}

func TestFlow_AssignValidation(t *testing.T) {
	f := uploadedFlow(t, &fakeBackend{headers: []string{"SN"}})

	require.ErrorIs(t, f.Assign("bogus", "SN"), ErrUnknownField)
	require.ErrorIs(t, f.Assign("serialNumber", "Serial"), ErrUnknownHeader)
}

func TestFlow_UnassignReturnsToHeadersReceived(t *testing.T) {
	f := uploadedFlow(t, &fakeBackend{headers: []string{"SN", "Product", "Qty"}})
	require.NoError(t, f.Assign("serialNumber", "SN"))
	require.NoError(t, f.Assign("productId", "Product"))
	require.NoError(t, f.Assign("quantity", "Qty"))
	require.True(t, f.CanProcess())

	require.NoError(t, f.Unassign("quantity"))
	assert.False(t, f.CanProcess())
	assert.Equal(t, StateHeadersReceived, f.State())
}

func TestFlow_AutoMap(t *testing.T) {
	f := uploadedFlow(t, &fakeBackend{headers: []string{"Serial Number", "product_id", "QTY", "Other"}})

	assert.Equal(t, 3, f.AutoMap())
	assert.Equal(t, map[string]string{
		"serialNumber": "Serial Number",
		"productId":    "product_id",
		"quantity":     "QTY",
	}, f.Mapping())
	assert.True(t, f.CanProcess())
}

func TestFlow_InvalidTransitions(t *testing.T) {
	f := NewFlow("inventory", inventorySpec, &fakeBackend{}, zerolog.Nop())

	require.ErrorIs(t, f.Upload(context.Background(), strings.NewReader("")), ErrInvalidTransition)
	require.ErrorIs(t, f.Assign("serialNumber", "SN"), ErrInvalidTransition)
	_, err := f.Process(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFlow_UploadFailure(t *testing.T) {
	b := &fakeBackend{uploadErr: &api.NetworkError{Method: "POST", URL: "x", Err: errors.New("refused")}}
	f := NewFlow("inventory", inventorySpec, b, zerolog.Nop())
	require.NoError(t, f.SelectFile("stock.csv"))

	err := f.Upload(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, StateFailed, f.State())
	assert.Equal(t, api.MsgNetwork, f.Message())

	require.NoError(t, f.SelectFile("stock.csv"), "a failed flow can start over")
	assert.Empty(t, f.Message())
}

func TestFlow_ProcessFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message verbatim",
			err:  &api.APIError{Status: 422, Message: "Row 4: unknown product P-99"},
			want: "Row 4: unknown product P-99",
		},
		{
			name: "no server message",
			err:  &api.APIError{Status: 500},
			want: MsgImportFailed,
		},
		{
			name: "undecodable",
			err:  &api.DecodeError{Path: "/x", Err: errors.New("eof")},
			want: MsgImportFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := uploadedFlow(t, &fakeBackend{headers: []string{"SN", "Product", "Qty"}, processErr: tt.err})
			f.AutoMap()
			require.NoError(t, f.Assign("serialNumber", "SN"))

			_, err := f.Process(context.Background())
			require.Error(t, err)
			assert.Equal(t, StateFailed, f.State())
			assert.Equal(t, tt.want, f.Message())
			require.ErrorIs(t, f.Err(), tt.err)
		})
	}
}

func TestFlow_CancelDiscardsState(t *testing.T) {
	f := uploadedFlow(t, &fakeBackend{headers: []string{"SN"}})
	require.NoError(t, f.Assign("serialNumber", "SN"))

	require.NoError(t, f.Cancel())
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, f.Headers())
	assert.Empty(t, f.Mapping())
	assert.Empty(t, f.Filename())
}

func TestFlow_CancelDuringUploadDropsResult(t *testing.T) {
	b := &fakeBackend{headers: []string{"SN"}, block: make(chan struct{})}
	f := NewFlow("inventory", inventorySpec, b, zerolog.Nop())
	require.NoError(t, f.SelectFile("stock.csv"))

	done := make(chan error)
	go func() { done <- f.Upload(context.Background(), strings.NewReader("SN\n")) }()

	require.Eventually(t, func() bool { return f.State() == StateUploading }, time.Second, time.Millisecond)
	require.NoError(t, f.Cancel())
	close(b.block)

	require.ErrorIs(t, <-done, ErrCancelled)
	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, f.Headers())
}

func TestFlow_StateString(t *testing.T) {
	assert.Equal(t, "headers received", StateHeadersReceived.String())
	assert.Equal(t, "state(42)", State(42).String())
}
