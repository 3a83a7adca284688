package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/replaysMike/Binner-sub003/internal/bom/testutil"
)

func TestPartCreateGetUpdate(t *testing.T) {
	router, _ := setupBomTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "POST", "/api/part", map[string]interface{}{
		"partNumber":             "LM358",
		"description":            "Dual op-amp",
		"manufacturerPartNumber": "LM358DR",
		"quantity":               25,
		"cost":                   "0.35",
	}, token)
	part := expectData(t, w, http.StatusCreated)
	partID := id(part["partId"])

	w = testutil.DoRequest(router, "GET", fmt.Sprintf("/api/part/%d", partID), nil, token)
	got := expectData(t, w, http.StatusOK)
	if got["partNumber"] != "LM358" || id(got["quantity"]) != 25 {
		t.Errorf("Unexpected part: %v", got)
	}

	w = testutil.DoRequest(router, "PUT", fmt.Sprintf("/api/part/%d", partID), map[string]interface{}{
		"partNumber": "LM358",
		"quantity":   30,
		"cost":       "0.30",
	}, token)
	updated := expectData(t, w, http.StatusOK)
	if id(updated["quantity"]) != 30 {
		t.Errorf("Expected quantity 30, got %v", updated["quantity"])
	}
}

func TestPartUpdateRefreshesLinkedBom(t *testing.T) {
	router, env := setupBomTest(t)
	token := testutil.DefaultTestToken()
	f := seedBoard(t, env, token)

	w := testutil.DoRequest(router, "PUT", fmt.Sprintf("/api/part/%d", f.part.ID), map[string]interface{}{
		"partNumber": f.part.PartNumber,
		"quantity":   20,
		"cost":       "0.01",
	}, token)
	expectData(t, w, http.StatusOK)

	// resistor: 20/10 = 2 boards, 1 build
	bom := getBom(t, router, token, "Amp")
	pcb := bom["producibility"].(map[string]interface{})["pcbs"].([]interface{})[0].(map[string]interface{})
	if id(pcb["count"]) != 2 {
		t.Errorf("Expected pcb count 2, got %v", pcb["count"])
	}
	if id(pcb["limitingPartAssignmentId"]) != f.linkedID {
		t.Errorf("Expected resistor to limit, got %v", pcb["limitingPartAssignmentId"])
	}
}

func TestPartGetNotFound(t *testing.T) {
	router, _ := setupBomTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "GET", "/api/part/424242", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	w = testutil.DoRequest(router, "GET", "/api/part/abc", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestPartSearch(t *testing.T) {
	router, env := setupBomTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedPart(t, env.DB, testutil.TestUserID, "LM358", 10, "0.35")
	testutil.SeedPart(t, env.DB, testutil.TestUserID, "LM317", 4, "0.50")
	testutil.SeedPart(t, env.DB, testutil.TestUserID, "NE555", 8, "0.20")
	testutil.SeedPart(t, env.DB, testutil.OtherUserID, "LM393", 8, "0.20")

	w := testutil.DoRequest(router, "GET", "/api/part/search?keywords=lm", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	results := testutil.ParseResponse(w)["data"].([]interface{})
	if len(results) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(results))
	}
	if results[0].(map[string]interface{})["partNumber"] != "LM317" {
		t.Errorf("Expected results ordered by part number, got %v", results[0])
	}

	w = testutil.DoRequest(router, "GET", "/api/part/search?keywords=lm&limit=1", nil, token)
	results = testutil.ParseResponse(w)["data"].([]interface{})
	if len(results) != 1 {
		t.Errorf("Expected limit 1, got %d", len(results))
	}
}

func TestAddPartUnknownInventoryPart(t *testing.T) {
	router, _ := setupBomTest(t)
	token := testutil.DefaultTestToken()
	projectID := createProject(t, router, token, "Amp")

	w := testutil.DoRequest(router, "POST", "/api/bom/part", map[string]interface{}{
		"projectId": projectID, "partId": 424242, "quantity": 1,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "POST", "/api/bom/part", map[string]interface{}{
		"projectId": projectID, "quantity": 1,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for manual item without name, got %d", w.Code)
	}
}
