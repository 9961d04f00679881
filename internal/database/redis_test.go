package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectStatsCacheDisabledWithoutURL(t *testing.T) {
	client, err := ConnectStatsCache("")
	require.NoError(t, err)
	require.Nil(t, client)
}

func TestConnectStatsCacheDialsAndPings(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := ConnectStatsCache("redis://" + srv.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectStatsCacheRejectsBadURL(t *testing.T) {
	_, err := ConnectStatsCache("://not-a-url")
	require.Error(t, err)
}

func TestConnectStatsCacheUnreachableHost(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := ConnectStatsCache("redis://" + addr)
	require.Error(t, err)
}
