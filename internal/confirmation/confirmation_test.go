package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, payload Payload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func sampleSource(workflow metadata.Workflow) Source {
	sessionID := uuid.MustParse("7b0c6f0e-6a55-4c0b-9d8e-2f6f0c1e7a11")
	skidKey := "2023080205|V8|002|LB"
	return Source{
		Session: models.Session{
			ID:          sessionID,
			Workflow:    workflow,
			UserID:      7,
			RouteNumber: "IDVV01",
			Trailer:     models.TrailerInfo{TrailerNumber: "TR-1", SealNumber: "SEAL-9", DriverName: "Sam Driver"},
		},
		Orders: []models.Order{
			{ID: 10, OrderNumber: "2023080205", DockCode: "V8", PlantCode: "02TMI", SupplierCode: "02806", SkidBuildConfirmation: "SB-100"},
		},
		Planned: []models.PlannedItem{
			{ID: 2, OrderID: 10, PartNumber: "P2", KanbanNumber: "K2", TotalBoxesPlanned: 1, SkidNumber: "001", SkidSide: "B", PalletizationCode: "LB"},
			{ID: 1, OrderID: 10, PartNumber: "P1", KanbanNumber: "K1", TotalBoxesPlanned: 2, SkidNumber: "001", SkidSide: "A", PalletizationCode: "LB"},
			{ID: 3, OrderID: 10, PartNumber: "P3", KanbanNumber: "K3", TotalBoxesPlanned: 1, SkidNumber: "002", SkidSide: "A", PalletizationCode: "LB"},
		},
		Scans: []models.ScanRecord{
			{PlannedItemID: 1, Kind: models.ScanKanban, InternalKanbanSerial: "S1"},
			{PlannedItemID: 1, Kind: models.ScanKanban, InternalKanbanSerial: "S2"},
			{PlannedItemID: 2, Kind: models.ScanKanban, InternalKanbanSerial: "S3"},
		},
		Exceptions: []models.Exception{
			{OrderID: 10, Code: metadata.ExceptionShortShipment, Comments: "label torn", RelatedKey: &skidKey},
		},
	}
}

func TestBuildPayloadSkidBuild(t *testing.T) {
	p := BuildPayload(sampleSource(metadata.WorkflowSkidBuild))

	assert.Equal(t, "7b0c6f0e-6a55-4c0b-9d8e-2f6f0c1e7a11", p.RequestID)
	assert.Nil(t, p.Trailer)
	require.Len(t, p.Orders, 1)
	assert.Empty(t, p.Orders[0].SkidBuildConfirmation)

	skids := p.Orders[0].Skids
	require.Len(t, skids, 2)
	assert.Equal(t, "001", skids[0].SkidNumber)
	assert.Equal(t, []string{"A", "B"}, skids[0].SkidSides)
	require.Len(t, skids[0].Parts, 2)
	assert.Equal(t, PartPayload{PartNumber: "P1", KanbanNumber: "K1", BoxesPlanned: 2, BoxesScanned: 2, KanbanSerials: []string{"S1", "S2"}}, skids[0].Parts[0])
	assert.Equal(t, 0, skids[1].Parts[0].BoxesScanned)

	require.Len(t, p.Exceptions, 1)
	assert.Equal(t, "2023080205|V8|002|LB", p.Exceptions[0].SkidKey)
	assert.Equal(t, "2023080205", p.Exceptions[0].OrderNumber)
}

func TestBuildPayloadShipmentCarriesTrailer(t *testing.T) {
	src := sampleSource(metadata.WorkflowShipmentLoad)
	src.Scans = []models.ScanRecord{{PlannedItemID: 1, Kind: models.ScanManifest}, {PlannedItemID: 2, Kind: models.ScanManifest}}

	p := BuildPayload(src)
	require.NotNil(t, p.Trailer)
	assert.Equal(t, "Sam Driver", p.Trailer.DriverName)
	assert.Equal(t, "SB-100", p.Orders[0].SkidBuildConfirmation)
	assert.Equal(t, 2, p.Orders[0].Skids[0].Parts[0].BoxesScanned)
}

func TestBuildPayloadIsPure(t *testing.T) {
	src := sampleSource(metadata.WorkflowSkidBuild)
	assert.Equal(t, BuildPayload(src), BuildPayload(src))
}

func TestCoordinatorSubmit(t *testing.T) {
	payload := BuildPayload(sampleSource(metadata.WorkflowSkidBuild))

	tests := []struct {
		name          string
		number        string
		submitErr     error
		wantNumber    string
		wantTransient bool
		wantRejected  bool
	}{
		{name: "success", number: " CONF-1 ", wantNumber: "CONF-1"},
		{name: "rejected", submitErr: &RejectedError{Code: "E100", Message: "bad seal"}, wantRejected: true},
		{name: "network failure", submitErr: errors.New("connection reset"), wantTransient: true},
		{name: "empty confirmation", number: "", wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := new(MockSubmitter)
			submitter.On("Submit", mock.Anything, payload).Return(tt.number, tt.submitErr)

			c := NewCoordinator(submitter, time.Second, nil)
			number, err := c.Submit(context.Background(), payload)

			assert.Equal(t, tt.wantNumber, number)
			assert.Equal(t, tt.wantTransient, IsTransient(err))
			assert.Equal(t, tt.wantRejected, IsRejected(err))
			submitter.AssertExpectations(t)
		})
	}
}

type slowSubmitter struct{}

func (slowSubmitter) Submit(ctx context.Context, _ Payload) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCoordinatorTimeoutIsTransient(t *testing.T) {
	c := NewCoordinator(slowSubmitter{}, 20*time.Millisecond, nil)

	_, err := c.Submit(context.Background(), Payload{RequestID: "r"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientSubmit(t *testing.T) {
	var gotPath, gotAuth, gotKey string
	var gotPayload Payload

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"confirmationNumber":"TMMC-0001"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(context.Background(), ClientConfig{
		BaseURL:      server.URL + "/api/",
		TokenURL:     server.URL + "/oauth/token",
		ClientID:     "scanner",
		ClientSecret: "secret",
		Timeout:      time.Second,
	})

	payload := BuildPayload(sampleSource(metadata.WorkflowShipmentLoad))
	number, err := client.Submit(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "TMMC-0001", number)
	assert.Equal(t, "/api/shipment", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, payload.RequestID, gotKey)
	assert.Equal(t, payload.RequestID, gotPayload.RequestID)
}

func TestClientSubmitFailures(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
		wantRejected  *RejectedError
	}{
		{
			name:         "validation failure",
			status:       http.StatusUnprocessableEntity,
			body:         `{"errorCode":"SEAL_REQUIRED","message":"seal number missing"}`,
			wantRejected: &RejectedError{Code: "SEAL_REQUIRED", Message: "seal number missing"},
		},
		{
			name:          "server error",
			status:        http.StatusBadGateway,
			body:          `upstream down`,
			wantTransient: true,
		},
		{
			name:          "throttled",
			status:        http.StatusTooManyRequests,
			wantTransient: true,
		},
		{
			name:         "error body on success status",
			status:       http.StatusOK,
			body:         `{"errorCode":"DUP","message":"order already confirmed"}`,
			wantRejected: &RejectedError{Code: "DUP", Message: "order already confirmed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/skid-build", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(context.Background(), ClientConfig{BaseURL: server.URL, Timeout: time.Second})
			_, err := client.Submit(context.Background(), Payload{RequestID: "r", Workflow: metadata.WorkflowSkidBuild})
			require.Error(t, err)

			assert.Equal(t, tt.wantTransient, IsTransient(err))
			if tt.wantRejected != nil {
				var rejected *RejectedError
				require.True(t, errors.As(err, &rejected))
				assert.Equal(t, tt.wantRejected, rejected)
			}
		})
	}
}

func TestClientSubmitMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client := NewClient(context.Background(), ClientConfig{BaseURL: server.URL, Timeout: time.Second})
	_, err := client.Submit(context.Background(), Payload{RequestID: "r", Workflow: metadata.WorkflowSkidBuild})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr))
	assert.Contains(t, err.Error(), "failed to decode OEM response")
}

func TestClientSubmitUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(context.Background(), ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.Submit(context.Background(), Payload{RequestID: "r", Workflow: metadata.WorkflowSkidBuild})
	assert.True(t, IsTransient(err))
}
