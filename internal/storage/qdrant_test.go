package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
)

// newMockQdrantServer 创建一个模拟Qdrant API的HTTP服务器
// handlers按"METHOD path"路由，未命中的请求一律404
func newMockQdrantServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if h, ok := handlers[key]; ok {
			h(w, r)
			return
		}
		// 集合存在性检查是所有用例的公共前置
		if r.Method == "GET" && r.URL.Path == "/collections/test_candidates" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 4, "distance": "Cosine"}}}}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func newTestQdrant(t *testing.T, server *httptest.Server) *storage.Qdrant {
	t.Helper()
	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_candidates",
		Dimension:  4,
	}
	client, err := storage.NewQdrant(cfg,
		storage.WithDistanceMetric("Cosine"),
		storage.WithHttpTimeout(5*time.Second))
	require.NoError(t, err, "应该成功创建Qdrant客户端")
	return client
}

func TestQdrant_NewQdrant(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	client := newTestQdrant(t, server)
	require.NotNil(t, client, "客户端不应为nil")
}

func TestQdrant_NewQdrant_CreatesMissingCollection(t *testing.T) {
	created := false
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"GET /collections/test_candidates": func(w http.ResponseWriter, r *http.Request) {
			if created {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 4, "distance": "Cosine"}}}}}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		},
		"PUT /collections/test_candidates": func(w http.ResponseWriter, r *http.Request) {
			created = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": true, "status": "ok"}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)
	require.NotNil(t, client)
	assert.True(t, created, "集合不存在时应自动创建")
}

func TestQdrant_CandidatePointID(t *testing.T) {
	id1 := storage.CandidatePointID("cand-001")
	id2 := storage.CandidatePointID("cand-001")
	id3 := storage.CandidatePointID("cand-002")

	assert.Equal(t, id1, id2, "同一候选人ID应映射到确定性的点ID")
	assert.NotEqual(t, id1, id3, "不同候选人ID应映射到不同的点ID")
	assert.Len(t, id1, 36, "点ID应是UUID格式")
}

func TestQdrant_UpsertCandidateVector(t *testing.T) {
	var gotBody map[string]interface{}
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"PUT /collections/test_candidates/points": func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &gotBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok", "time": 0.001}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)

	pointID, err := client.UpsertCandidateVector(context.Background(), "cand-001",
		[]float64{0.1, 0.2, 0.3, 0.4},
		map[string]interface{}{"role": "Teacher"})
	require.NoError(t, err, "存储向量不应返回错误")
	assert.Equal(t, storage.CandidatePointID("cand-001"), pointID)

	// 请求体应携带候选人ID载荷，便于按ID反查
	points := gotBody["points"].([]interface{})
	require.Len(t, points, 1)
	payload := points[0].(map[string]interface{})["payload"].(map[string]interface{})
	assert.Equal(t, "cand-001", payload["candidate_id"])
	assert.Equal(t, "Teacher", payload["role"])
}

func TestQdrant_UpsertCandidateVector_DimensionMismatch(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	client := newTestQdrant(t, server)

	_, err := client.UpsertCandidateVector(context.Background(), "cand-001",
		[]float64{0.1, 0.2}, nil)
	assert.Error(t, err, "维度不匹配的向量应被拒绝")

	_, err = client.UpsertCandidateVector(context.Background(), "",
		[]float64{0.1, 0.2, 0.3, 0.4}, nil)
	assert.Error(t, err, "空候选人ID应被拒绝")
}

func TestQdrant_SearchSimilarCandidates(t *testing.T) {
	var gotBody map[string]interface{}
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"POST /collections/test_candidates/points/search": func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &gotBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": [
					{"id": "p1", "score": 0.92, "payload": {"candidate_id": "cand-001", "role": "Teacher"}},
					{"id": "p2", "score": 0.85, "payload": {"candidate_id": "cand-002", "role": "Teacher"}}
				],
				"status": "ok", "time": 0.002
			}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)

	filter := storage.BuildCandidateFilter(map[string]string{"role": "Teacher"})
	results, err := client.SearchSimilarCandidates(context.Background(),
		[]float64{0.1, 0.2, 0.3, 0.4}, 5, filter)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "p1", results[0].ID)
	assert.InDelta(t, 0.92, results[0].Score, 0.001)
	assert.Equal(t, "cand-001", results[0].Payload["candidate_id"])

	// 请求应携带过滤器和limit
	assert.Equal(t, float64(5), gotBody["limit"])
	assert.NotNil(t, gotBody["filter"], "非空过滤条件应传给Qdrant")
	assert.Equal(t, true, gotBody["with_payload"])
}

func TestQdrant_SearchSimilarCandidates_DimensionMismatch(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	client := newTestQdrant(t, server)
	_, err := client.SearchSimilarCandidates(context.Background(), []float64{0.1}, 5, nil)
	assert.Error(t, err)
}

func TestQdrant_UpdateCandidatePayload(t *testing.T) {
	var gotBody map[string]interface{}
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"POST /collections/test_candidates/points/payload": func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &gotBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok", "time": 0.001}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)

	err := client.UpdateCandidatePayload(context.Background(), "cand-001",
		map[string]interface{}{"role": "Principal"})
	require.NoError(t, err)

	points := gotBody["points"].([]interface{})
	require.Len(t, points, 1)
	assert.Equal(t, storage.CandidatePointID("cand-001"), points[0])
	payload := gotBody["payload"].(map[string]interface{})
	assert.Equal(t, "Principal", payload["role"])
	assert.Equal(t, "cand-001", payload["candidate_id"], "载荷更新应始终保留候选人ID")
}

func TestQdrant_UpdateCandidatePayload_EmptyPayload(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	client := newTestQdrant(t, server)

	// 空载荷是no-op，不应发请求也不应报错
	assert.NoError(t, client.UpdateCandidatePayload(context.Background(), "cand-001", nil))
	assert.Error(t, client.UpdateCandidatePayload(context.Background(), "", map[string]interface{}{"a": 1}))
}

func TestQdrant_DeleteCandidateVector(t *testing.T) {
	var gotBody map[string]interface{}
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"POST /collections/test_candidates/points/delete": func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &gotBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok", "time": 0.001}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)

	require.NoError(t, client.DeleteCandidateVector(context.Background(), "cand-001"))

	points := gotBody["points"].([]interface{})
	require.Len(t, points, 1)
	assert.Equal(t, storage.CandidatePointID("cand-001"), points[0], "删除应按确定性点ID定位")
}

func TestBuildCandidateFilter(t *testing.T) {
	assert.Nil(t, storage.BuildCandidateFilter(nil), "空条件应返回nil")
	assert.Nil(t, storage.BuildCandidateFilter(map[string]string{"role": ""}), "空值条件应被忽略")

	filter := storage.BuildCandidateFilter(map[string]string{
		"role": "Teacher",
		"city": "Mumbai",
	})
	require.NotNil(t, filter)
	must := filter["must"].([]map[string]interface{})
	assert.Len(t, must, 2)

	for _, cond := range must {
		match := cond["match"].(map[string]interface{})
		switch cond["key"] {
		case "role":
			assert.Equal(t, "Teacher", match["value"])
		case "city":
			assert.Equal(t, "Mumbai", match["value"])
		default:
			t.Fatalf("未预期的过滤字段: %v", cond["key"])
		}
	}
}

func TestQdrant_CountPoints(t *testing.T) {
	var countBody map[string]interface{}
	server := newMockQdrantServer(t, map[string]http.HandlerFunc{
		"POST /collections/test_candidates/points/count": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &countBody))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"count": 42}, "status": "ok", "time": 0.001}`))
		},
	})
	defer server.Close()

	client := newTestQdrant(t, server)

	count, err := client.CountPoints(context.Background())
	require.NoError(t, err, "计数不应失败")
	assert.Equal(t, int64(42), count)
	assert.Equal(t, true, countBody["exact"], "应请求精确计数")
}
