package handlers

import (
	"net/http"
	"testing"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/testhelpers"
)

func alertPayload(title string) api.SubmitAlertRequest {
	return api.SubmitAlertRequest{
		Source:    "prometheus",
		Severity:  "high",
		Title:     title,
		Message:   "CPU above 90% for 5 minutes",
		AlertType: "metrics",
	}
}

func TestSubmitAlertOpensGroup(t *testing.T) {
	app := newTestAPI(t)

	var resp api.SubmitAlertResponse
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(alertPayload("High CPU usage on web-01")).
		Execute(app.mux).
		AssertStatus(http.StatusCreated).
		DecodeJSON(&resp)

	if !resp.NewGroup {
		t.Error("first alert should open a new group")
	}
	if resp.AlertUUID == "" || resp.GroupUUID == "" {
		t.Errorf("response missing identifiers: %+v", resp)
	}
	if resp.CorrelationScore != 1.0 {
		t.Errorf("sole member score = %f, want 1.0", resp.CorrelationScore)
	}
}

func TestSubmitAlertDeduplicates(t *testing.T) {
	app := newTestAPI(t)
	payload := alertPayload("High CPU usage on web-01")

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(payload).
		Execute(app.mux).
		AssertStatus(http.StatusCreated)

	var resp api.SubmitAlertResponse
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
		WithJSONBody(payload).
		Execute(app.mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if !resp.Deduplicated {
		t.Error("identical alert should deduplicate")
	}
	if resp.OccurrenceCount != 2 {
		t.Errorf("occurrence_count = %d, want 2", resp.OccurrenceCount)
	}

	var count int64
	app.db.Model(&database.Alert{}).Count(&count)
	if count != 1 {
		t.Errorf("alert rows = %d, want 1", count)
	}
}

func TestSubmitAlertValidation(t *testing.T) {
	app := newTestAPI(t)

	cases := []struct {
		name    string
		mutate  func(*api.SubmitAlertRequest)
		missing string
	}{
		{"missing source", func(r *api.SubmitAlertRequest) { r.Source = "" }, "source"},
		{"bad severity", func(r *api.SubmitAlertRequest) { r.Severity = "urgent" }, "severity"},
		{"missing title", func(r *api.SubmitAlertRequest) { r.Title = "" }, "title"},
		{"bad type", func(r *api.SubmitAlertRequest) { r.AlertType = "synthetic" }, "alert_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := alertPayload("High CPU usage")
			tc.mutate(&payload)
			testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil).
				WithJSONBody(payload).
				Execute(app.mux).
				AssertStatus(http.StatusUnprocessableEntity).
				AssertBodyContains(tc.missing)
		})
	}
}

func TestSubmitAlertRejectsMalformedJSON(t *testing.T) {
	app := newTestAPI(t)

	ctx := testhelpers.NewHTTPTestContext(t, http.MethodPost, "/api/alerts", nil)
	ctx.Request.Header.Set("Content-Type", "application/json")
	ctx.Execute(app.mux).AssertStatus(http.StatusBadRequest)
}

func TestListAlertsFilters(t *testing.T) {
	app := newTestAPI(t)

	app.submitAlert(t, "prometheus", "high", "High CPU usage on web-01")
	app.submitAlert(t, "datadog", "low", "Slow query on analytics db")

	var resp struct {
		Data       []api.AlertListItem `json:"data"`
		Pagination api.PaginationMeta  `json:"pagination"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?source=prometheus", nil).
		Execute(app.mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if len(resp.Data) != 1 || resp.Data[0].Source != "prometheus" {
		t.Errorf("filtered data = %+v, want only prometheus alerts", resp.Data)
	}
	if resp.Pagination.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Pagination.Total)
	}
}

func TestListAlertsByGroup(t *testing.T) {
	app := newTestAPI(t)

	result := app.submitAlert(t, "prometheus", "high", "High CPU usage on web-01")
	app.submitAlert(t, "datadog", "low", "Slow query on analytics db")

	var resp struct {
		Data []api.AlertListItem `json:"data"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?group="+result.Group.UUID, nil).
		Execute(app.mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	if len(resp.Data) != 1 || resp.Data[0].GroupUUID != result.Group.UUID {
		t.Errorf("data = %+v, want the group's single member", resp.Data)
	}

	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts?group=no-such-group", nil).
		Execute(app.mux).
		AssertStatus(http.StatusNotFound)
}

func TestGetAlert(t *testing.T) {
	app := newTestAPI(t)
	result := app.submitAlert(t, "prometheus", "high", "High CPU usage on web-01")

	var item api.AlertListItem
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts/"+result.Alert.UUID, nil).
		Execute(app.mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&item)

	if item.UUID != result.Alert.UUID {
		t.Errorf("uuid = %s, want %s", item.UUID, result.Alert.UUID)
	}
	if item.GroupUUID != result.Group.UUID {
		t.Errorf("group_uuid = %s, want %s", item.GroupUUID, result.Group.UUID)
	}

	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts/unknown-uuid", nil).
		Execute(app.mux).
		AssertStatus(http.StatusNotFound)
}

func TestUpdateAlertStatus(t *testing.T) {
	app := newTestAPI(t)
	result := app.submitAlert(t, "prometheus", "high", "High CPU usage on web-01")

	var item api.AlertListItem
	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/alerts/"+result.Alert.UUID+"/status", nil).
		WithJSONBody(api.UpdateAlertStatusRequest{Status: "acknowledged"}).
		Execute(app.mux).
		AssertStatus(http.StatusOK).
		DecodeJSON(&item)

	if item.Status != database.AlertStatusAcknowledged {
		t.Errorf("status = %s, want acknowledged", item.Status)
	}

	testhelpers.NewHTTPTestContext(t, http.MethodPut, "/api/alerts/"+result.Alert.UUID+"/status", nil).
		WithJSONBody(api.UpdateAlertStatusRequest{Status: "escalated"}).
		Execute(app.mux).
		AssertStatus(http.StatusUnprocessableEntity)
}
