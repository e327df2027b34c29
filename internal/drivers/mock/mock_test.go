package mock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriverWithArgs(t *testing.T, args string) *Driver {
	t.Helper()
	d, err := New(1, json.RawMessage(args))
	require.NoError(t, err)
	return d.(*Driver)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestMockWriteRead(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	require.NoError(t, d.Write(100, 42))
	v, err := d.Read(100)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestMockReadUnwrittenAddressIsZero(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	v, err := d.Read(999)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
}

func TestMockInitialValues(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{"initial_values":{"1":100,"2":200}}`)

	v1, _ := d.Read(1)
	v2, _ := d.Read(2)
	assert.Equal(t, int32(100), v1)
	assert.Equal(t, int32(200), v2)
}

func TestMockPersistenceAcrossInstances(t *testing.T) {
	chdirTemp(t)
	d1 := newDriverWithArgs(t, `{}`)
	require.NoError(t, d1.Write(5, 55))

	d2 := newDriverWithArgs(t, `{}`)
	v, err := d2.Read(5)
	require.NoError(t, err)
	assert.Equal(t, int32(55), v)
}

func TestMockPingCommand(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	raw, err := d.Execute("ping", json.RawMessage(`{}`))
	require.NoError(t, err)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestMockBatchWriteAndRead(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	raw, err := d.Execute("batch_write", json.RawMessage(`{"writes":[{"addr":1,"value":100},{"addr":2,"value":200}]}`))
	require.NoError(t, err)
	var writeResp map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &writeResp))
	assert.EqualValues(t, 2, writeResp["written"])

	raw, err = d.Execute("batch_read", json.RawMessage(`{"addrs":[1,2]}`))
	require.NoError(t, err)
	var readResp struct {
		Results []struct {
			Addr  uint32 `json:"addr"`
			Value int32  `json:"value"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &readResp))
	require.Len(t, readResp.Results, 2)
	assert.Equal(t, int32(100), readResp.Results[0].Value)
	assert.Equal(t, int32(200), readResp.Results[1].Value)
}

func TestMockFaultSimulation(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	_, err := d.CallMethod("simulate_fault", json.RawMessage(`{}`))
	require.NoError(t, err)

	_, err = d.Read(1)
	assert.Error(t, err)
	err = d.Write(1, 100)
	assert.Error(t, err)

	_, err = d.CallMethod("clear_fault", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.NoError(t, d.Write(1, 100))
	_, err = d.Read(1)
	assert.NoError(t, err)
}

func TestMockJSONStoreLifecycle(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	_, err := d.Execute("store_json", json.RawMessage(`{"key":"cfg","value":{"brightness":80}}`))
	require.NoError(t, err)

	raw, err := d.Execute("load_json", json.RawMessage(`{"key":"cfg"}`))
	require.NoError(t, err)
	var loadResp struct {
		Found bool            `json:"found"`
		Value json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal(raw, &loadResp))
	assert.True(t, loadResp.Found)

	raw, err = d.Execute("load_json", json.RawMessage(`{"key":"missing"}`))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &loadResp))
	assert.False(t, loadResp.Found)

	raw, err = d.Execute("get_all_json", json.RawMessage(`{}`))
	require.NoError(t, err)
	var allResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &allResp))
	assert.Equal(t, 1, allResp.Count)

	raw, err = d.Execute("delete_json", json.RawMessage(`{"key":"cfg"}`))
	require.NoError(t, err)
	var delResp struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(raw, &delResp))
	assert.True(t, delResp.Deleted)
}

func TestMockErrorRateAlwaysFails(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{"error_rate":1.0}`)

	_, err := d.Read(1)
	assert.Error(t, err)
	err = d.Write(1, 1)
	assert.Error(t, err)
}

func TestMockSetGetValueMethods(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)

	_, err := d.CallMethod("set_value", json.RawMessage(`{"addr":9,"value":77}`))
	require.NoError(t, err)

	raw, err := d.CallMethod("get_value", json.RawMessage(`{"addr":9}`))
	require.NoError(t, err)
	var resp struct {
		Value int32 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, int32(77), resp.Value)
}

func TestMockStoragePathUsesCwd(t *testing.T) {
	chdirTemp(t)
	d := newDriverWithArgs(t, `{}`)
	require.NoError(t, d.Write(1, 1))

	wd, _ := os.Getwd()
	_, err := os.Stat(filepath.Join(wd, "data", "mock_storage", "channel_1.json"))
	assert.NoError(t, err)
}
