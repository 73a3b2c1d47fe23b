package estimator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

func TestHTTPComparatorCompare(t *testing.T) {
	var got compareRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/compare", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 3}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", time.Second, 0)
	score, err := c.Compare(context.Background(),
		&frontier.Plan{ID: 4, Cost: 2.5, ConfigPath: "plans/4.yaml", Action: "decompose"},
		&frontier.Plan{ID: 1, Cost: 1.0, ConfigPath: "plans/1.yaml"},
	)
	require.NoError(t, err)
	assert.Equal(t, MuchBetter, score)
	assert.Equal(t, frontier.PlanID(4), got.Candidate.ID)
	assert.Equal(t, "decompose", got.Candidate.Action)
	assert.Equal(t, "plans/1.yaml", got.Reference.ConfigPath)
}

func TestHTTPComparatorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "judge overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, 0)
	_, err := c.Compare(context.Background(), &frontier.Plan{ID: 2}, &frontier.Plan{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPComparatorBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, 0)
	_, err := c.Compare(context.Background(), &frontier.Plan{ID: 2}, &frontier.Plan{ID: 1})
	assert.Error(t, err)
}

func TestHTTPComparatorRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score": 0}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second, 0.01)
	_, err := c.Compare(context.Background(), &frontier.Plan{ID: 2}, &frontier.Plan{ID: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Compare(ctx, &frontier.Plan{ID: 3}, &frontier.Plan{ID: 1})
	assert.Error(t, err)
}
