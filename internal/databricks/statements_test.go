package databricks

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genie-copilot/internal/domain"
)

func createRequest() domain.CreateFunctionRequest {
	return domain.CreateFunctionRequest{
		Identity:    domain.TargetIdentity{Catalog: "main", Schema: "genie", Name: "genie_fn"},
		Statement:   "CREATE OR REPLACE FUNCTION main.genie.genie_fn() RETURNS TABLE LANGUAGE SQL COMMENT 'c' RETURN SELECT 1",
		WarehouseID: "wh1",
	}
}

func TestCreateOrReplaceFunction_Succeeds(t *testing.T) {
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/2.0/sql/statements", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statement_id": "st1",
			"status":       map[string]string{"state": "SUCCEEDED"},
		})
	})

	client := newTestClient(t, handler)
	err := client.CreateOrReplaceFunction(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, "wh1", gotBody["warehouse_id"])
	assert.Equal(t, "30s", gotBody["wait_timeout"])
	assert.Contains(t, gotBody["statement"], "CREATE OR REPLACE FUNCTION")
}

func TestCreateOrReplaceFunction_PollsUntilTerminal(t *testing.T) {
	polls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"statement_id": "st1",
				"status":       map[string]string{"state": "PENDING"},
			})
			return
		}
		require.Equal(t, "/api/2.0/sql/statements/st1", r.URL.Path)
		polls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statement_id": "st1",
			"status":       map[string]string{"state": "SUCCEEDED"},
		})
	})

	client := newTestClient(t, handler)
	err := client.CreateOrReplaceFunction(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, polls)
}

func TestCreateOrReplaceFunction_FailedState(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statement_id": "st1",
			"status": map[string]interface{}{
				"state": "FAILED",
				"error": map[string]string{"message": "TABLE_OR_VIEW_NOT_FOUND"},
			},
		})
	})

	client := newTestClient(t, handler)
	err := client.CreateOrReplaceFunction(context.Background(), createRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TABLE_OR_VIEW_NOT_FOUND")
}

func TestExecuteStatement_Succeeds(t *testing.T) {
	var gotBody map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/2.0/sql/statements", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statement_id": "st1",
			"status":       map[string]string{"state": "SUCCEEDED"},
		})
	})

	client := newTestClient(t, handler)
	err := client.ExecuteStatement(context.Background(), "wh1", "DESCRIBE FUNCTION main.genie.genie_fn")
	require.NoError(t, err)
	assert.Equal(t, "wh1", gotBody["warehouse_id"])
	assert.Equal(t, "DESCRIBE FUNCTION main.genie.genie_fn", gotBody["statement"])
}

func TestExecuteStatement_FailedState(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statement_id": "st1",
			"status": map[string]interface{}{
				"state": "FAILED",
				"error": map[string]string{"message": "PERMISSION_DENIED"},
			},
		})
	})

	client := newTestClient(t, handler)
	err := client.ExecuteStatement(context.Background(), "wh1", "DESCRIBE FUNCTION main.genie.genie_fn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
}

func TestListFunctions_PagesAndReturnsBareNames(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/2.1/unity-catalog/functions", r.URL.Path)
		require.Equal(t, "main", r.URL.Query().Get("catalog_name"))
		require.Equal(t, "genie", r.URL.Query().Get("schema_name"))

		if r.URL.Query().Get("page_token") == "" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"functions":       []map[string]string{{"name": "fn_a"}},
				"next_page_token": "t2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"functions": []map[string]string{{"name": "fn_b"}},
		})
	})

	client := newTestClient(t, handler)
	names, err := client.ListFunctions(context.Background(), "main", "genie")
	require.NoError(t, err)
	assert.Equal(t, []string{"fn_a", "fn_b"}, names)
}

func TestListFunctions_EmptySchema(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{})
	})

	client := newTestClient(t, handler)
	names, err := client.ListFunctions(context.Background(), "main", "genie")
	require.NoError(t, err)
	assert.Empty(t, names)
}
