package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brojonat/sbi/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL, apiKey, query string) *Client {
	t.Helper()
	code, err := config.CompileQuery(query)
	require.NoError(t, err)
	return NewClient(serverURL, apiKey, code, time.Second, nil, nil, nil)
}

func TestNFTsByOwner_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/address/wallet123/tokens", r.URL.Path)
		assert.Equal(t, "nft", r.URL.Query().Get("type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name": "Mad Lad #8420", "mintAddress": "F9Lw3ki3hJ7PF9HQXsBzoY8GyE6sPoEZZdXJBsTTD2rk", "collection": "madlads"},
			{"name": "Claynosaurz #1", "mintAddress": "8Kbj5DDqLjBCN4KZ3nPvibkZP1JRvpSmRPGCp3hsm8y9"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", config.DefaultNFTQuery)
	nfts, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.NoError(t, err)
	require.Len(t, nfts, 2)

	assert.Equal(t, NFT{Name: "Mad Lad #8420", Mint: "F9Lw3ki3hJ7PF9HQXsBzoY8GyE6sPoEZZdXJBsTTD2rk"}, nfts[0])
	assert.Equal(t, NFT{Name: "Claynosaurz #1", Mint: "8Kbj5DDqLjBCN4KZ3nPvibkZP1JRvpSmRPGCp3hsm8y9"}, nfts[1])
}

func TestNFTsByOwner_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", config.DefaultNFTQuery)
	nfts, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.NoError(t, err)
	assert.Empty(t, nfts)
	assert.NotNil(t, nfts)
}

func TestNFTsByOwner_MissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"mintAddress": "mint1"}, {"name": 7}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", config.DefaultNFTQuery)
	nfts, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.NoError(t, err)
	require.Len(t, nfts, 2)
	assert.Equal(t, NFT{Name: "", Mint: "mint1"}, nfts[0])
	assert.Equal(t, NFT{Name: "7", Mint: ""}, nfts[1])
}

func TestNFTsByOwner_CustomQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [{"content": {"metadata": {"name": "Degod #1"}}, "id": "mintA"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", `.items[] | {name: .content.metadata.name, mint: .id}`)
	nfts, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.NoError(t, err)
	require.Len(t, nfts, 1)
	assert.Equal(t, NFT{Name: "Degod #1", Mint: "mintA"}, nfts[0])
}

func TestNFTsByOwner_SendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret", config.DefaultNFTQuery)
	_, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.NoError(t, err)
}

func TestNFTsByOwner_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", config.DefaultNFTQuery)
	_, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNFTsByOwner_UnexpectedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "", config.DefaultNFTQuery)
	_, err := client.NFTsByOwner(context.Background(), "wallet123")
	require.Error(t, err)
}

func TestNFTsByOwner_Timeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer server.Close()
	defer close(done)

	code, err := config.CompileQuery(config.DefaultNFTQuery)
	require.NoError(t, err)
	client := NewClient(server.URL, "", code, 20*time.Millisecond, nil, nil, nil)

	_, err = client.NFTsByOwner(context.Background(), "wallet123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
