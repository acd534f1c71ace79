package wildberries

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricehound/internal/marketdata"
)

func wbRef(id string) marketdata.Ref {
	return marketdata.Ref{
		Marketplace: marketdata.Wildberries,
		ProductID:   id,
		URL:         "https://www.wildberries.ru/catalog/" + id + "/detail.aspx",
	}
}

func mirror(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetch_CardPathSharding(t *testing.T) {
	var gotPath string
	host := mirror(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"name":"Кроссовки","salePriceU":499000}`)
	})

	f := NewFetcher(http.DefaultClient, WithHosts([]string{host}))
	snap, err := f.Fetch(context.Background(), wbRef("546168907"))
	require.NoError(t, err)

	assert.Equal(t, "/vol546/part546168/546168907/info/ru/card.json", gotPath)
	assert.Equal(t, "Кроссовки", snap.Title)
	assert.Equal(t, int64(4990), snap.Price)
}

func TestFetch_MirrorFallback(t *testing.T) {
	var hosts []string
	// Hosts 1-5 fail in assorted ways; host 6 has the card.
	for i := 0; i < 5; i++ {
		status := http.StatusNotFound
		if i%2 == 1 {
			status = http.StatusInternalServerError
		}
		hosts = append(hosts, mirror(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
	}
	hosts = append(hosts, mirror(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"Наушники","salePriceU":129900}`)
	}))

	f := NewFetcher(http.DefaultClient, WithHosts(hosts))
	snap, err := f.Fetch(context.Background(), wbRef("123456"))
	require.NoError(t, err)
	assert.Equal(t, int64(1299), snap.Price)
}

func TestFetch_AllMirrorsFail(t *testing.T) {
	hosts := []string{
		mirror(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }),
		mirror(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }),
	}

	f := NewFetcher(http.DefaultClient, WithHosts(hosts))
	_, err := f.Fetch(context.Background(), wbRef("123456"))
	require.Error(t, err)
	// The exhausted error carries the last mirror's failure.
	assert.Contains(t, err.Error(), "502")
}

func TestFetch_PriceConversionFloors(t *testing.T) {
	tests := []struct {
		kopecks int64
		rubles  int64
	}{
		{499000, 4990},
		{499099, 4990}, // truncated, not rounded
		{99, 0},
	}
	for _, tt := range tests {
		host := mirror(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"name":"x","salePriceU":%d}`, tt.kopecks)
		})
		f := NewFetcher(http.DefaultClient, WithHosts([]string{host}))
		snap, err := f.Fetch(context.Background(), wbRef("123456"))
		require.NoError(t, err)
		assert.Equal(t, tt.rubles, snap.Price, "kopecks=%d", tt.kopecks)
	}
}

func TestFetch_FieldFallbacks(t *testing.T) {
	t.Run("priceU when salePriceU absent", func(t *testing.T) {
		host := mirror(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"imt_name":"Чайник","priceU":250000}`)
		})
		f := NewFetcher(http.DefaultClient, WithHosts([]string{host}))
		snap, err := f.Fetch(context.Background(), wbRef("123456"))
		require.NoError(t, err)
		assert.Equal(t, "Чайник", snap.Title)
		assert.Equal(t, int64(2500), snap.Price)
	})

	t.Run("placeholder title when both names absent", func(t *testing.T) {
		host := mirror(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"priceU":100000}`)
		})
		f := NewFetcher(http.DefaultClient, WithHosts([]string{host}))
		snap, err := f.Fetch(context.Background(), wbRef("555666777"))
		require.NoError(t, err)
		assert.Equal(t, "WB 555666777", snap.Title)
	})

	t.Run("no price field fails", func(t *testing.T) {
		host := mirror(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"name":"Без цены"}`)
		})
		f := NewFetcher(http.DefaultClient, WithHosts([]string{host}))
		_, err := f.Fetch(context.Background(), wbRef("123456"))
		assert.ErrorIs(t, err, marketdata.ErrPriceUnavailable)
	})
}

func TestFetch_NonNumericArticle(t *testing.T) {
	f := NewFetcher(http.DefaultClient, WithHosts([]string{"http://unused"}))
	_, err := f.Fetch(context.Background(), wbRef("unknown"))
	require.Error(t, err)
}

func TestFetch_AttemptTimeoutAdvances(t *testing.T) {
	slow := mirror(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	fast := mirror(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"ok","salePriceU":100}`)
	})

	f := NewFetcher(http.DefaultClient,
		WithHosts([]string{slow, fast}),
		WithAttemptTimeout(100*time.Millisecond))

	start := time.Now()
	snap, err := f.Fetch(context.Background(), wbRef("123456"))
	require.NoError(t, err)
	assert.Equal(t, "ok", snap.Title)
	assert.Less(t, time.Since(start), time.Second)
}
